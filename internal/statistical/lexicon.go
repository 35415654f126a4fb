package statistical

import "github.com/truecheckia/detector/internal/models"

// aiPhrases returns transition and hedging phrases that LLM prose overuses,
// keyed by language. Matching is case-insensitive substring search.
func aiPhrases() map[models.Language][]string {
	return map[models.Language][]string{
		models.LanguageEN: {
			"furthermore", "moreover", "in conclusion", "additionally",
			"it is important to note", "it's worth noting", "in summary",
			"on the other hand", "in today's fast-paced world", "delve into",
			"a testament to", "in the realm of", "navigating the landscape",
			"as an ai language model", "it is crucial to", "plays a pivotal role",
			"in essence", "ultimately,", "comprehensive understanding",
		},
		models.LanguagePT: {
			"em conclusão", "além disso", "é importante notar", "em resumo",
			"vale ressaltar", "por outro lado", "no mundo atual", "em suma",
			"nesse sentido", "dessa forma", "no cenário atual", "é fundamental",
			"desempenha um papel crucial", "de maneira geral", "em última análise",
			"é imprescindível", "cabe destacar",
		},
	}
}

// informalMarkers returns contractions, slang, and spoken-register markers
// that humans use and LLM prose tends to avoid.
func informalMarkers() map[models.Language][]string {
	return map[models.Language][]string{
		models.LanguageEN: {
			"n't", "'re", "'ll", "'ve", "'m", "'d", "gonna", "wanna", "gotta",
			"kinda", "sorta", "dunno", "lol", "tbh", "btw", "omg", "yeah",
			"nah", "y'all", "super ", "pretty much", "a bunch of",
		},
		models.LanguagePT: {
			"né", "tá", "tô", "pra ", "pro ", "cara", "tipo assim", "beleza",
			"valeu", "a gente", "vc", "mano", "demais", "massa", "kkk",
			"aí ", "eita", "pô",
		},
	}
}
