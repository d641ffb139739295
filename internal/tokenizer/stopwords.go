package tokenizer

// englishStopwords is the built-in English stopword list. It is intentionally
// small: only words that carry no ranking signal in document search.
var englishStopwords = []string{
	"a", "an", "and", "are", "as", "at", "be", "but", "by",
	"for", "if", "in", "into", "is", "it", "its",
	"no", "not", "of", "on", "or", "such",
	"that", "the", "their", "then", "there", "these", "they",
	"this", "to", "was", "were", "will", "with",
}

// chineseStopwords is the built-in Chinese stopword list, limited to
// high-frequency function words.
var chineseStopwords = []string{
	"的", "了", "和", "是", "在", "有", "我", "他", "她", "它",
	"这", "那", "们", "与", "及", "或", "被", "将", "对", "从",
	"就", "也", "而", "但", "并", "都", "个", "中", "为", "于",
}

// stopwordSet builds the lookup set from the built-in lists plus
// user-supplied extras. A nil set means filtering is disabled.
func stopwordSet(enabled bool, extraEnglish, extraChinese []string) map[string]struct{} {
	if !enabled {
		return nil
	}
	set := make(map[string]struct{},
		len(englishStopwords)+len(chineseStopwords)+len(extraEnglish)+len(extraChinese))
	for _, lists := range [][]string{englishStopwords, chineseStopwords, extraEnglish, extraChinese} {
		for _, w := range lists {
			set[w] = struct{}{}
		}
	}
	return set
}
