package markup

import (
	"regexp"
	"sort"
)

// replyHeaderPatterns match the sender/date header block that precedes each
// message in a forwarded or quoted e-mail chain.
var replyHeaderPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?:发件人|From|Sender|from)[\s\S]{0,500}?(?:时间|Date|日期|发送时间|发送日期|time)`),
	regexp.MustCompile(`(?:发件人|From|Sender)[\s\S]{0,500}?(?:收件人|To|收信人)`),
	regexp.MustCompile(`(?:发件人|From|Sender)[\s\S]{0,500}?(?:主题|Subject|subject)`),
	regexp.MustCompile(`(?:发件人|From|Sender)[\s\S]{0,500}?(?:邮箱|email|<[^>]*@[^>]*>)`),
	regexp.MustCompile(`(?:发件人|From|Sender)[\s\S]{0,500}?(?:\d{4}-\d{2}-\d{2}|\d{2}/\d{2}/\d{4})`),
}

// TruncateThread keeps only the first quoted message of a reply chain: the
// content from the first message header up to the second one. Markup with
// fewer than two headers is returned unchanged.
func TruncateThread(markup string) string {
	var matches [][]int
	for _, re := range replyHeaderPatterns {
		matches = append(matches, re.FindAllStringIndex(markup, -1)...)
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i][0] < matches[j][0] })

	var headers [][]int
	lastEnd := -1
	for _, m := range matches {
		if m[0] > lastEnd {
			headers = append(headers, m)
			lastEnd = m[1]
		}
	}
	if len(headers) <= 1 {
		return markup
	}
	return markup[headers[0][0]:headers[1][0]]
}
