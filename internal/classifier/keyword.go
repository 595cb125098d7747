package classifier

import (
	"context"
	"github.com/kovalyov-valentin/read-later-bot/internal/model"
	"github.com/tomakado/containers/set"
	"regexp"
	"sort"
	"strings"
)

type Classifier interface {
	Classify(ctx context.Context, title, content, description string) (string, error)
}

type category struct {
	name     string
	keywords []string
}

// Порядок важен: при равных баллах побеждает категория выше по списку
var categories = []category{
	{name: "Technology", keywords: []string{
		"software", "hardware", "computer", "programming", "code", "developer",
		"app", "application", "digital", "tech", "internet", "web", "api",
		"algorithm", "data", "database", "cloud", "server", "network",
		"cybersecurity", "security", "encryption", "blockchain", "cryptocurrency",
		"artificial", "machine learning", "ai", "robot", "automation",
	}},
	{name: "Science", keywords: []string{
		"research", "study", "scientist", "scientific", "experiment", "theory",
		"biology", "chemistry", "physics", "astronomy", "space", "universe",
		"climate", "environment", "ecology", "genetics", "dna", "medical",
		"health", "disease", "vaccine", "medicine", "laboratory", "discovery",
	}},
	{name: "Business", keywords: []string{
		"business", "company", "startup", "entrepreneur", "ceo", "market",
		"economy", "finance", "investment", "stock", "trade", "revenue",
		"profit", "sales", "customer", "marketing", "strategy", "management",
		"corporate", "enterprise", "industry", "commerce", "brand",
	}},
	{name: "Politics", keywords: []string{
		"government", "politics", "political", "election", "vote", "democracy",
		"president", "minister", "congress", "parliament", "law", "policy",
		"legislation", "candidate", "campaign", "senator", "representative",
		"diplomacy", "international", "nation", "state", "federal",
	}},
	{name: "Entertainment", keywords: []string{
		"movie", "film", "actor", "actress", "director", "cinema", "television",
		"tv", "show", "series", "music", "song", "album", "concert", "band",
		"artist", "entertainment", "celebrity", "hollywood", "streaming",
		"gaming", "game", "video game", "esports",
	}},
	{name: "Sports", keywords: []string{
		"sport", "sports", "athlete", "team", "player", "coach", "game",
		"match", "tournament", "championship", "league", "football", "soccer",
		"basketball", "baseball", "tennis", "golf", "olympic", "competition",
		"training", "fitness", "exercise",
	}},
	{name: "Education", keywords: []string{
		"education", "learning", "student", "teacher", "school", "university",
		"college", "course", "lesson", "study", "academic", "degree",
		"curriculum", "classroom", "lecture", "tutorial", "training",
		"knowledge", "skill", "pedagogy",
	}},
	{name: "Lifestyle", keywords: []string{
		"lifestyle", "fashion", "style", "design", "home", "food", "recipe",
		"cooking", "travel", "vacation", "destination", "hotel", "restaurant",
		"wellness", "beauty", "fitness", "hobby", "craft", "diy",
	}},
	{name: "Opinion", keywords: []string{
		"opinion", "editorial", "commentary", "perspective", "viewpoint",
		"analysis", "critique", "review", "argument", "debate", "essay",
		"column", "blog", "think", "believe", "should", "must",
	}},
}

const (
	minCategoryScore = 2
	contentPrefixLen = 1000
)

// Categories возвращает все известные категории в порядке приоритета
func Categories() []string {
	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.name)
	}
	return names
}

// Классификатор по вхождениям ключевых слов. Заголовок весит втрое, описание вдвое
type KeywordClassifier struct{}

func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{}
}

func (k *KeywordClassifier) Classify(_ context.Context, title, content, description string) (string, error) {
	return k.categorize(title, content, description), nil
}

func (k *KeywordClassifier) categorize(title, content, description string) string {
	var b strings.Builder
	b.WriteString(strings.Repeat(title+" ", 3))
	if description != "" {
		b.WriteString(strings.Repeat(description+" ", 2))
	}
	b.WriteString(prefix(content, contentPrefixLen))

	text := strings.ToLower(b.String())

	var (
		best      = model.DefaultCategory
		bestScore = 0
	)
	for _, c := range categories {
		score := 0
		for _, kw := range c.keywords {
			// Подстрока, а не слово: "ai" находится и в "said"
			score += strings.Count(text, kw)
		}

		if score > bestScore {
			best, bestScore = c.name, score
		}
	}

	if bestScore < minCategoryScore {
		return model.DefaultCategory
	}

	return best
}

var (
	wordRe    = regexp.MustCompile(`\b[a-z]{3,}\b`)
	stopWords = set.New(
		"the", "is", "at", "which", "on", "a", "an", "as", "are", "was", "were",
		"been", "be", "have", "has", "had", "do", "does", "did", "will", "would",
		"could", "should", "may", "might", "must", "can", "of", "to", "in", "for",
		"with", "by", "from", "about", "into", "through", "during", "before",
		"after", "above", "below", "up", "down", "out", "off", "over", "under",
		"again", "further", "then", "once", "this", "that", "these", "those",
		"and", "but", "not", "you", "your", "its", "our", "their", "they",
	)
)

// Самые частые слова текста без стоп-слов. При равной частоте раньше идет слово, встреченное первым
func Keywords(text string, max int) []string {
	if max <= 0 {
		return []string{}
	}

	var (
		counts = make(map[string]int)
		order  []string
	)
	for _, w := range wordRe.FindAllString(strings.ToLower(text), -1) {
		if stopWords.Contains(w) {
			continue
		}
		if _, seen := counts[w]; !seen {
			order = append(order, w)
		}
		counts[w]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})

	if len(order) > max {
		order = order[:max]
	}

	return append([]string{}, order...)
}

func prefix(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
