package search

import (
	"fmt"
	"strings"

	"github.com/efebarandurmaz/anzen/internal/incident"
	"github.com/efebarandurmaz/anzen/internal/parse"
)

const noRecentCases = "社内で最近発生した関連事故事例はありません。"

// groundingContext renders recent internal cases for the suggestion prompt.
func groundingContext(cases []incident.Case) string {
	if len(cases) == 0 {
		return noRecentCases
	}
	items := make([]string, len(cases))
	for i, c := range cases {
		items[i] = fmt.Sprintf("- タイトル: %s\n  状況: %s\n  原因: %s\n  対策: %s", c.Title, c.Description, c.Cause, c.Measures)
	}
	return "【社内で最近発生した関連事故事例】\n" + strings.Join(items, "\n\n")
}

func iconList() string {
	names := make([]string, len(parse.Icons))
	for i, ic := range parse.Icons {
		names[i] = string(ic)
	}
	return strings.Join(names, ", ")
}

func suggestionPrompt(query, lang, categoryName, grounding string, n int) string {
	return fmt.Sprintf(`あなたは非常に慎重な労働安全の専門家です。
以下の【社内で最近発生した関連事故事例】を最優先で参照し、ユーザーの作業内容に関連性が高い場合は、その教訓を必ず反映させてください。
その上で、以下の「ユーザーの作業内容」に対して、追加で注意すべき実践的な安全対策を%d個、重要な順に、簡潔な箇条書き（- 対策文）で提案してください。
さらに、各対策文に対して、以下の【アイコンリスト】の中から最も関連性の高いアイコン名を1つだけ選び、"icon: [アイコン名]" の形式で付記してください。

回答はユーザーが指定した言語（%s）で記述してください。

%s

【アイコンリスト】
%s

【ユーザーの作業内容】
%s

【関連する災害カテゴリ】
名前: %s

【出力形式の例】
- ヘルメットを必ず着用してください。 icon: helmet-safety
- 足元が不安定な場所では作業しないでください。 icon: person-falling

【追加の安全提案】
`, n, lang, grounding, iconList(), query, categoryName)
}
