package openai

import "fmt"

const extractionResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "chunks": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "content": {
            "type": "string"
          },
          "summary": {
            "type": "string"
          },
          "tags": {
            "type": "array",
            "items": {
              "type": "string",
              "pattern": "^[a-z]+( [a-z]+)*$"
            }
          },
          "propositions": {
            "type": "array",
            "items": {
              "type": "string"
            }
          }
        },
        "required": ["content", "summary", "tags", "propositions"],
        "additionalProperties": false
      }
    }
  },
  "required": ["chunks"],
  "additionalProperties": false
}`

const extractionPromptTemplate = `Split the given document into semantically coherent chunks and return them as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Rules:
- Each chunk covers exactly one topic, argument, or section of the document.
- The "content" field must reproduce the document text verbatim; never paraphrase, rewrite, or reorder it.
- Chunks must appear in document order and together cover the whole document.
- Prefer chunks of a few paragraphs; never split mid-sentence.
- The "summary" field is one or two sentences condensing the chunk.
- Tags are lowercase topic labels, 1-3 words each, at most five per chunk.
- Propositions are standalone factual statements the chunk supports, each understandable without the chunk.
- If the document is too short to split, return a single chunk covering all of it.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input: "Badgers are nocturnal mammals. They dig extensive burrow systems called setts. Honey badgers, despite the name, are more closely related to weasels."
Output:
{
  "chunks": [
    {
      "content": "Badgers are nocturnal mammals. They dig extensive burrow systems called setts.",
      "summary": "Badgers are nocturnal and dig burrow systems called setts.",
      "tags": ["badger", "burrow"],
      "propositions": ["Badgers are nocturnal mammals.", "Badger burrow systems are called setts."]
    },
    {
      "content": "Honey badgers, despite the name, are more closely related to weasels.",
      "summary": "Honey badgers are related to weasels rather than badgers.",
      "tags": ["honey badger", "taxonomy"],
      "propositions": ["Honey badgers are more closely related to weasels than to badgers."]
    }
  ]
}`

// buildExtractionPrompt creates the system prompt with the response schema embedded.
func buildExtractionPrompt() string {
	return fmt.Sprintf(extractionPromptTemplate, extractionResponseSchema)
}
