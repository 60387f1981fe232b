// Package levels holds the static level catalog of the anthology and the
// numeric formatting rules shared by every UI surface.
package levels

import "strings"

// Era tags a level's theme. The input overlay and the timeline sprites pick
// their layout from this tag.
type Era string

const (
	EraTelegraph  Era = "telegraph"
	EraGramophone Era = "gramophone"
	EraWireless   Era = "wireless"
	EraAtomic     Era = "atomic"
	EraTransistor Era = "transistor"
	EraArcade     Era = "arcade"
	EraHomeMicro  Era = "homemicro"
	EraConsole    Era = "console"
	EraDialup     Era = "dialup"
	EraPocket     Era = "pocket"
)

// Config is the read-only descriptor of one level. Constructed once from the
// static catalog, never mutated.
type Config struct {
	Number float64 `json:"number"`
	Year   int     `json:"year"`
	Title  string  `json:"title"`
	Era    Era     `json:"era"`
	Sprite string  `json:"sprite"`
}

// Bonus reports whether the level carries one of the half-integer bonus ids.
func (c Config) Bonus() bool {
	return IsBonus(c.Number)
}

// catalog lists every level in play order. Bonus levels sit between their
// neighbouring integer levels.
var catalog = []Config{
	{Number: 1, Year: 1890, Title: "Wire & Key", Era: EraTelegraph, Sprite: "timeline/telegraph"},
	{Number: 2, Year: 1905, Title: "Shellac Spin", Era: EraGramophone, Sprite: "timeline/gramophone"},
	{Number: 3, Year: 1923, Title: "Crystal Set", Era: EraWireless, Sprite: "timeline/wireless"},
	{Number: 4, Year: 1938, Title: "Signal Chase", Era: EraWireless, Sprite: "timeline/wireless-late"},
	{Number: 4.5, Year: 1942, Title: "Static Storm", Era: EraWireless, Sprite: "timeline/bonus-static"},
	{Number: 5, Year: 1952, Title: "Atom Hop", Era: EraAtomic, Sprite: "timeline/atomic"},
	{Number: 6, Year: 1964, Title: "Pocket Radio", Era: EraTransistor, Sprite: "timeline/transistor"},
	{Number: 7, Year: 1977, Title: "Coin-Op Alley", Era: EraArcade, Sprite: "timeline/arcade"},
	{Number: 7.5, Year: 1979, Title: "Glitch Run", Era: EraArcade, Sprite: "timeline/bonus-glitch"},
	{Number: 8, Year: 1984, Title: "Home Micro", Era: EraHomeMicro, Sprite: "timeline/homemicro"},
	{Number: 9, Year: 1993, Title: "Cartridge Rush", Era: EraConsole, Sprite: "timeline/console"},
	{Number: 10, Year: 1999, Title: "Dial Tone", Era: EraDialup, Sprite: "timeline/dialup"},
	{Number: 10.5, Year: 2001, Title: "Snake Break", Era: EraPocket, Sprite: "timeline/bonus-pocket"},
}

var byNumber = func() map[float64]Config {
	m := make(map[float64]Config, len(catalog))
	for _, c := range catalog {
		m[c.Number] = c
	}
	return m
}()

// Lookup returns the descriptor for a level number.
func Lookup(number float64) (Config, bool) {
	c, ok := byNumber[number]
	return c, ok
}

// All returns the full catalog in play order. The returned slice is a copy.
func All() []Config {
	out := make([]Config, len(catalog))
	copy(out, catalog)
	return out
}

// Main returns the ten integer levels in play order, bonus levels excluded.
func Main() []Config {
	out := make([]Config, 0, MainCount)
	for _, c := range catalog {
		if !c.Bonus() {
			out = append(out, c)
		}
	}
	return out
}

// MainCount is the number of non-bonus levels.
const MainCount = 10

// GameID returns the module identifier a level's game logic registers under,
// e.g. "level-03" or "level-4b".
func (c Config) GameID() string {
	return "level-" + strings.ToLower(FormatNumber(c.Number))
}
