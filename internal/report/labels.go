package report

import "github.com/efebarandurmaz/anzen/internal/catalog"

// Labels are the fixed headings of a report.
type Labels struct {
	Title       string
	Task        string
	Measures    string
	Suggestions string
}

var labels = map[catalog.Lang]Labels{
	catalog.LangJA: {Title: "【安全報告書】", Task: "■ 作業内容:", Measures: "実施すべき対策", Suggestions: "Geminiからの追加提案"},
	catalog.LangEN: {Title: "【Safety Report】", Task: "■ Work Task:", Measures: "Measures to be Taken", Suggestions: "Additional Suggestions from Gemini"},
	catalog.LangBN: {Title: "【নিরাপত্তা প্রতিবেদন】", Task: "■ কাজের বিবরণ:", Measures: "গ্রহণযোগ্য পদক্ষেপ", Suggestions: "Gemini থেকে অতিরিক্ত পরামর্শ"},
	catalog.LangZH: {Title: "【安全报告】", Task: "■ 工作内容:", Measures: "应采取的措施", Suggestions: "来自Gemini的额外建议"},
}

// LabelsFor returns the headings for lang, Japanese when unknown.
func LabelsFor(lang catalog.Lang) Labels {
	if l, ok := labels[lang]; ok {
		return l
	}
	return labels[catalog.BaseLang]
}

const footerText = "「職場のあんぜんサイト」（厚生労働省）を加工して作成"
