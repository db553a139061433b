package catalog

import (
	"fmt"
	"strings"
)

func caseDigest(cases []Case, withMeasures bool) string {
	var sb strings.Builder
	for i, c := range cases {
		if i > 0 {
			sb.WriteString("\n\n")
		}
		fmt.Fprintf(&sb, "- タイトル: %s\n  原因: %s", c.Title, c.Cause)
		if withMeasures {
			fmt.Fprintf(&sb, "\n  対策: %s", c.Measures)
		}
	}
	return sb.String()
}

func namesPrompt(cases []Case, n int) string {
	return fmt.Sprintf(`あなたは経験豊富な労働安全コンサルタントです。
次の労働災害事例をすべて分析し、事例を漏れなく分類できるカテゴリを%d個作成してください。
- カテゴリ名は日本語で30文字以内とし、互いに似すぎないようにしてください。
- 回答は「1. カテゴリ名」の番号付きリストのみとし、説明文は書かないでください。

【労働災害事例】
%s

回答:`, n, caseDigest(cases, false))
}

func classifyPrompt(c Case, names []string) string {
	return fmt.Sprintf(`あなたは分類の専門家です。
次の災害事例に最も当てはまるカテゴリを、カテゴリ一覧から一つだけ選んでください。
回答はカテゴリ名のみとし、一覧の表記をそのまま使ってください。

【カテゴリ一覧】
%s

【災害事例】
タイトル: %s
原因: %s

回答:`, strings.Join(names, ", "), c.Title, c.Cause)
}

func descriptionPrompt(name string, cases []Case) string {
	return fmt.Sprintf(`次の災害事例はすべて「%s」に分類されています。
これらに共通する事故の状況を200文字程度で要約してください。要約文のみを回答してください。

【事例】
%s

要約:`, name, caseDigest(cases, true))
}

func measuresPrompt(name string, cases []Case) string {
	return fmt.Sprintf(`次の災害事例はすべて「%s」に分類されています。
これらの事例から、実施すべき最も重要な対策を%d個、それぞれ50文字程度でまとめてください。
回答は「1. 対策」の番号付きリストのみとし、見出しや説明文は書かないでください。

【事例】
%s

対策:`, name, MeasuresPerCategory, caseDigest(cases, true))
}
