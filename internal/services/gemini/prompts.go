package gemini

// transcriptionPrompt instructs the model to classify the recording and emit
// the structured shape the normalization boundary understands.
const transcriptionPrompt = `Listen to this voice note about food and respond with JSON only.

Classify the activity first:
- "cooking" when the speaker describes preparing a meal from ingredients
- "eating" when the speaker describes consuming food
- null when you cannot tell

Respond with this shape:
{
  "raw_transcription": "<what was said>",
  "activity_type": "cooking" | "eating" | null,
  "status": "complete" | "needs_clarification",
  "date": "YYYY-MM-DD or empty",
  "time": "HH:MM or empty",
  "meals": [{"meal_name": "...", "ingredients": [{"name": "...", "weight_g": <number>, "calories_per_100g": <number>, "total_calories": <number>}]}],
  "foods": [{"name": "...", "weight_g": <number>, "calories": <number>}],
  "missing_data": ["..."],
  "clarification_question": "..."
}

Include "meals" only for cooking and "foods" only for eating. Give every
ingredient a weight and either calories_per_100g or total_calories, estimating
typical values when the speaker does not say. When essential information is
missing and cannot be estimated, set status to "needs_clarification", list
what is missing in missing_data, and ask one concrete clarification_question.`

// clarificationPrompt frames a follow-up round: the prior partial result plus
// the user's typed answer, to be merged into one improved result.
const clarificationPrompt = `A previous voice note about food could not be fully processed. Below is the
partial analysis followed by the user's clarification. Merge them and respond
with the same JSON shape as before, JSON only.

Partial analysis:
%s

User clarification:
%s`
