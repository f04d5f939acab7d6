package badges

import "github.com/BTreeMap/BraveCall/internal/models"

type mission struct {
	models.Mission
	badge string // completing the mission earns this badge
}

var missions = []mission{
	{models.Mission{ID: 1, Title: "Say Hello", Description: "Say hi to your friend!", Points: 20}, FirstHello},
	{models.Mission{ID: 2, Title: "Kind Words", Description: "Use a kind word like 'please' or 'thank you'.", Points: 30}, KindSoul},
	{models.Mission{ID: 3, Title: "Curious Turtle", Description: "Ask a question about the ocean.", Points: 50}, CuriousExplorer},
}

// Missions returns the mission list. A mission is completed once the child
// holds its badge; a nil earned set marks nothing completed.
func Missions(earned map[string]bool) []models.Mission {
	out := make([]models.Mission, 0, len(missions))
	for _, m := range missions {
		mm := m.Mission
		mm.Completed = earned[m.badge]
		out = append(out, mm)
	}
	return out
}
