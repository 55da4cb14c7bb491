package providers

// Support grades the expected transcription quality for a language.
// Ordered so a higher value is a better grade; anything above
// SupportNone counts as supported.
type Support int

const (
	SupportNone Support = iota
	SupportNoData
	SupportModerate
	SupportGood
	SupportHigh
	SupportExcellent
)

func (s Support) Supported() bool { return s > SupportNone }

func (s Support) String() string {
	switch s {
	case SupportExcellent:
		return "excellent"
	case SupportHigh:
		return "high"
	case SupportGood:
		return "good"
	case SupportModerate:
		return "moderate"
	case SupportNoData:
		return "no-data"
	}
	return "unsupported"
}

// languageGrades holds per-vendor quality tiers for ISO 639-1 codes on the
// default live model. Amazon Transcribe streaming requires an explicit
// language, so it has no table and is never chosen by automatic routing.
var languageGrades = map[Provider]map[string]Support{
	Deepgram: grades(map[Support][]string{
		SupportExcellent: {"en", "es"},
		SupportHigh:      {"fr", "de", "hi", "ru", "pt", "ja", "it", "nl"},
		SupportGood:      {"zh", "ko", "sv", "da", "no", "pl", "tr", "uk"},
		SupportModerate:  {"id", "th"},
	}),
	Soniox: grades(map[Support][]string{
		SupportExcellent: {"en", "es", "fr", "de", "it", "pt"},
		SupportHigh: {"hi", "ru", "ja", "nl", "zh", "ko", "sv", "da", "no",
			"fi", "pl", "tr", "uk"},
		SupportGood: {"cs", "sk", "hu", "ro", "bg", "el", "he", "ar", "fa",
			"id", "ms", "th", "vi"},
		SupportModerate: {"ta", "te", "bn", "mr", "gu", "kn", "ml", "pa",
			"ur", "tl", "hr", "sr", "sl", "lt", "lv", "et"},
		SupportNoData: {"af", "sw", "az", "ka", "kk", "uz"},
	}),
	AssemblyAI: grades(map[Support][]string{
		SupportExcellent: {"en"},
		SupportHigh:      {"es", "fr", "de"},
		SupportGood:      {"it", "pt", "nl"},
	}),
	Gladia: grades(map[Support][]string{
		SupportExcellent: {"en", "es", "fr"},
		SupportHigh:      {"de", "hi", "ru", "pt", "ja", "it", "nl"},
		SupportGood:      {"zh", "ko", "pl", "tr", "uk"},
		SupportModerate:  {"ar", "id", "th", "vi", "ro", "cs"},
	}),
	OpenAI: grades(map[Support][]string{
		SupportExcellent: {"en"},
		SupportHigh:      {"es", "fr", "de", "pt", "it", "nl"},
		SupportGood: {"hi", "ru", "ja", "zh", "ko", "sv", "da", "no", "fi",
			"pl", "tr", "uk"},
		SupportModerate: {"ar", "he", "id", "th", "vi", "cs", "ro", "hu", "el"},
	}),
}

func grades(byTier map[Support][]string) map[string]Support {
	m := make(map[string]Support)
	for tier, codes := range byTier {
		for _, c := range codes {
			m[c] = tier
		}
	}
	return m
}

// SupportLevel grades the requested languages as the minimum tier across
// them, since a multi-language session is only as good as its weakest
// language. An empty request means automatic detection, which every
// multilingual vendor handles well.
func SupportLevel(p Provider, languages []string) Support {
	table := languageGrades[p]
	if table == nil {
		return SupportNone
	}
	if len(languages) == 0 {
		return SupportHigh
	}
	level := SupportExcellent
	for _, code := range languages {
		tier, ok := table[code]
		if !ok {
			return SupportNone
		}
		if tier < level {
			level = tier
		}
	}
	return level
}
