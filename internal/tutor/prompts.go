package tutor

import "fmt"

// ExplanationPrompt asks for 2-4 meanings of word as {"definition", "examples"}.
func ExplanationPrompt(word string) string {
	return fmt.Sprintf(`Please provide multiple meanings for the English word %q. For each meaning, include a simple definition and an example sentence. The definitions should be easy for an English learner to understand.

Format your response as JSON with two keys: "definition" and "examples".
The "definition" field should contain bullet-point definitions (without examples) separated by semicolons, like: "- To do something, simple definition; - To be something, simple definition".
The "examples" field should contain one bullet-point example sentence per meaning, in the same order, separated by semicolons, like: "- Example sentence for the first meaning; - Example sentence for the second meaning".
Provide 2-4 different meanings where applicable.`, word)
}

// CategoryPrompt asks for a short category name for word as {"category"}.
func CategoryPrompt(word string) string {
	return fmt.Sprintf(`Suggest one short category (one to three words, for example "Food", "Travel" or "Emotions") that a vocabulary notebook would file the English word %q under.

Respond with a JSON object containing a single key "category", for example: {"category": "Food"}.`, word)
}

// GrammarPrompt asks for a grammar verdict on input as
// {"isCorrect", "feedback", "suggestions"}.
func GrammarPrompt(input, topic string) string {
	return fmt.Sprintf(`You are an English grammar teacher. Please check the grammar of the following sentence and provide feedback as a JSON response.

Sentence: %q
Topic: %s

Please respond with a JSON object containing:
- "isCorrect": true/false (boolean indicating if the grammar is correct)
- "feedback": A constructive feedback message explaining what's correct or what needs improvement. Use **bold** for the words that matter.
- "suggestions": An array of specific suggestions for improvement (only if there are errors)

Be encouraging and educational in your feedback. Focus on grammar, sentence structure, and word usage appropriate for the topic: %s.`, input, topic, topic)
}

// PhrasePrompt asks for a practice sentence as
// {"phrase", "translation", "grammarFocus"}.
func PhrasePrompt(topic string, d Difficulty) string {
	return fmt.Sprintf(`Generate a practice sentence for English learners focused on the topic %q. The sentence should be at %s difficulty level.

Please respond with a JSON object containing:
- "phrase": The practice sentence
- "translation": A simple translation if the topic is in another language (or empty if English)
- "grammarFocus": The main grammar point this sentence helps practice

Make the sentence engaging and relevant to the topic: %s. For %s difficulty, use appropriate vocabulary and sentence complexity.`, topic, d, topic, d)
}

// TopicWordsPrompt asks for a vocabulary list about topic as a JSON array of
// {"term", "meanings", "examples"}.
func TopicWordsPrompt(topic string) string {
	return fmt.Sprintf(`Create a vocabulary list of 20-30 useful English words or short phrases about the topic %q for English learners.

Respond with a JSON array only. Each element must be an object with three string keys:
- "term": the word or phrase
- "meanings": Meanings as semicolon-separated bullet points, like "- first meaning; - second meaning"
- "examples": Examples as semicolon-separated bullet points, one per meaning, with the vocabulary term in **bold text**

Example: [{"term": "itinerary", "meanings": "- a planned route or journey", "examples": "- Our **itinerary** includes three cities."}]`, topic)
}
