package classify

import (
	"fmt"
	"strings"

	"github.com/memoir-labs/memoir/internal/domain"
)

// Sampling settings per call type. Classification and entity extraction run
// cold; tag generation tolerates a little variety.
const (
	classifyTemperature float32 = 0.3
	entityTemperature   float32 = 0.2
	tagsTemperature     float32 = 0.5
	intentTemperature   float32 = 0.3

	classifyMaxTokens = 500
	entityMaxTokens   = 300
	tagsMaxTokens     = 100
	intentMaxTokens   = 200
)

const classifySystemPrompt = `You are the AI assistant of a personal memory keeper app.
Your task: classify user content into exactly one of these categories:

- movies (films, series, videos)
- books (books, articles, blogs)
- places (locations, restaurants, cafes)
- ideas (ideas, thoughts, insights)
- recipes (recipes, food)
- products (things to buy)

Return ONLY valid JSON in this exact shape:
{
  "category": "category name",
  "confidence": 0.95,
  "reasoning": "short explanation",
  "extracted_data": {
    "key": "value"
  }
}

For extracted_data pull out category-specific details:
- movies: {"title": "...", "director": "...", "year": ...}
- books: {"title": "...", "author": "...", "genre": "..."}
- places: {"name": "...", "address": "...", "type": "..."}
- ideas: {"topic": "...", "source": "..."}
- recipes: {"dish": "...", "cuisine": "..."}
- products: {"name": "...", "category": "...", "price": "..."}`

// entityPrompts holds the category-specific extraction instructions.
var entityPrompts = map[string]string{
	"movies":   "Extract: movie title, director, main actors, release year, genre",
	"books":    "Extract: book title, author, publisher, genre, year",
	"places":   "Extract: place name, address, place type, rating",
	"ideas":    "Extract: main topic, source of inspiration, key concepts",
	"recipes":  "Extract: dish name, cuisine, cooking time, difficulty",
	"products": "Extract: product name, brand, category, approximate price",
}

const entityPromptFallback = "Extract the key information"

func entitySystemPrompt(category string) string {
	instruction, ok := entityPrompts[category]
	if !ok {
		instruction = entityPromptFallback
	}
	return instruction + ".\nReturn ONLY valid JSON with the extracted data.\nUse null for anything not found."
}

func tagsSystemPrompt(maxTags int) string {
	return fmt.Sprintf(`Generate up to %d relevant tags for the content.
Return only the tags as a comma-separated list, with no numbering and no extra text.
Tags must be short and descriptive.`, maxTags)
}

const intentSystemPrompt = `Analyze the text and determine its content type and intent.

Content types:
- movie: film, series, cinema, documentary
- book: book, novel, article, textbook
- recipe: recipe, dish, cooking
- place: restaurant, cafe, city, location, landmark
- product: item to buy or order
- idea: thought, idea, note (no lookup needed)
- task: todo, chore, reminder

Return JSON:
{
  "intent": "movie",
  "search_query": "Interstellar",
  "needs_search": true,
  "confidence": 0.95,
  "reasoning": "short explanation"
}

Rules:
- Mentions of "buy", "purchase", "order" -> product, needs_search=true
- "watched", "movie", "series" -> movie, needs_search=true
- "read", "book", "novel" -> book, needs_search=true
- "recipe", "cook", "dish" -> recipe, needs_search=true
- "restaurant", "cafe", "place" -> place, needs_search=true
- "idea", "thought", pure musings -> idea, needs_search=false
- "need to", "should", a todo with no concrete object -> task, needs_search=false
- For search_query keep only the key words (strip "watched", "buy", "need to", etc.)
- A bare title (e.g. "Interstellar") -> guess the type from context`

// classifyUserPrompt builds the user message, title first when present.
func classifyUserPrompt(content, title string) string {
	var sb strings.Builder
	if title != "" {
		sb.WriteString("Title: ")
		sb.WriteString(title)
		sb.WriteByte('\n')
	}
	sb.WriteString("Content: ")
	sb.WriteString(content)
	return sb.String()
}

// knownIntents guards the intent label coming back from the model.
var knownIntents = map[string]bool{
	domain.IntentMovie:   true,
	domain.IntentBook:    true,
	domain.IntentRecipe:  true,
	domain.IntentPlace:   true,
	domain.IntentProduct: true,
	domain.IntentIdea:    true,
	domain.IntentTask:    true,
}
