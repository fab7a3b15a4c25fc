package stoplist

// English returns a general English stopword list.
func English() []string {
	return []string{
		"a", "about", "above", "after", "again", "against", "ain", "all", "also", "am", "an", "and",
		"any", "are", "aren", "as", "at", "be", "because", "been", "before", "being", "below",
		"between", "both", "but", "by", "can", "could", "couldn", "did", "didn", "do", "does",
		"doesn", "doing", "don", "down", "during", "each", "even", "every", "few", "for", "from",
		"further", "had", "hadn", "has", "hasn", "have", "haven", "having", "he", "her", "here",
		"hers", "herself", "him", "himself", "his", "how", "however", "i", "if", "in", "into",
		"is", "isn", "it", "its", "itself", "just", "like", "ll", "may", "me", "might", "mightn",
		"more", "most", "much", "must", "mustn", "my", "myself", "needn", "no", "nor", "not",
		"now", "of", "off", "on", "once", "only", "or", "other", "otherwise", "our", "ours",
		"ourselves", "out", "over", "own", "same", "shall", "shan", "she", "should", "shouldn",
		"since", "so", "some", "such", "than", "that", "the", "their", "theirs", "them",
		"themselves", "then", "there", "therefore", "these", "they", "this", "those", "through",
		"thus", "to", "too", "under", "until", "up", "upon", "very", "was", "wasn", "we", "were",
		"weren", "what", "when", "where", "whereas", "whether", "which", "while", "who", "whom",
		"whose", "why", "will", "with", "within", "without", "won", "would", "wouldn", "yet",
		"you", "your", "yours", "yourself", "yourselves",
	}
}
