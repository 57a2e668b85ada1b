package lexicon

// Fallback returns the built-in lexicon used when no remote document can be
// obtained: three fixed word lists, each entry carrying weight 1.0. It keeps
// the scorer meaningful while the real document is unreachable; it is not a
// substitute for it.
func Fallback() RawTable {
	raw := make(RawTable, len(Emotions))
	for emotion, words := range fallbackWords {
		table := make(map[string]float64, len(words))
		for _, w := range words {
			table[w] = 1.0
		}
		raw[string(emotion)] = table
	}
	return raw
}

var fallbackWords = map[Emotion][]string{
	Anger: {
		"angry", "anger", "mad", "furious", "rage", "hate", "annoyed",
		"irritated", "frustrated", "outraged", "livid", "resent",
		"hostile", "bitter", "fed up", "sick of",
	},
	Joy: {
		"happy", "joy", "glad", "great", "love", "excited", "wonderful",
		"amazing", "awesome", "delighted", "fantastic", "cheerful",
		"thrilled", "grateful", "smile", "over the moon",
	},
	Sad: {
		"sad", "unhappy", "depressed", "miserable", "cry", "lonely",
		"gloomy", "heartbroken", "sorrow", "grief", "hopeless",
		"hurt", "empty", "burned out", "worn out", "let down",
	},
}
