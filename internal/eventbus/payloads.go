package eventbus

// LevelRequest asks the shell to load or start a level.
type LevelRequest struct {
	Level float64 `json:"level"`
}

// LevelLoaded announces that a level's game logic is installed and
// initialized. Placeholder is true when the real module could not be
// acquired and the stand-in game was installed instead.
type LevelLoaded struct {
	Level       float64 `json:"level"`
	Title       string  `json:"title"`
	Year        int     `json:"year"`
	Era         string  `json:"era"`
	Placeholder bool    `json:"placeholder"`
}

// LevelCompleted announces that a level was finished successfully.
type LevelCompleted struct {
	Level float64 `json:"level"`
	Score int     `json:"score"`
}

// PhaseChanged carries the new shared-state phase.
type PhaseChanged struct {
	Phase string `json:"phase"`
}

// MinigameEnded is the single terminal event a running game instance emits.
type MinigameEnded struct {
	Level   float64 `json:"level"`
	Success bool    `json:"success"`
	Score   int     `json:"score"`
}

// ScoreChanged carries the new session total after a completion.
type ScoreChanged struct {
	Total int `json:"total"`
	Delta int `json:"delta"`
}

// CollectibleGained is published when a level awards an era collectible.
type CollectibleGained struct {
	Era   string `json:"era"`
	Icon  string `json:"icon"`
	Count int    `json:"count"`
}

// KeyInput is a forwarded user key press.
type KeyInput struct {
	Code string `json:"code"`
}

// Toast is a short user-facing message shown by the input overlay.
type Toast struct {
	Message string `json:"message"`
}
