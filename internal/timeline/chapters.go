package timeline

// Chapter marks the start of a historical era.
type Chapter struct {
	Year     int    `json:"year"`
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// Chapters is ordered by year.
var Chapters = []Chapter{
	{Year: -3000, Title: "Dawn of Civilization", Subtitle: "The first empires emerge along great rivers"},
	{Year: -500, Title: "The Classical World", Subtitle: "Philosophy, democracy, and empire"},
	{Year: 1, Title: "Imperial Consolidation", Subtitle: "Rome and Han shape the known world"},
	{Year: 500, Title: "Late Antiquity", Subtitle: "Empires transform and fragment"},
	{Year: 1500, Title: "The Early Modern Era", Subtitle: "Gunpowder, trade, and global conquest"},
}

// ChapterIndex returns the index of the last chapter whose year has been
// reached, or -1 before the first chapter.
func ChapterIndex(year int) int {
	for i := len(Chapters) - 1; i >= 0; i-- {
		if year >= Chapters[i].Year {
			return i
		}
	}
	return -1
}

// ChapterTracker announces chapter changes during playback only. Moving
// the slider by hand updates the current chapter silently so resuming
// playback in a new era does not announce it.
type ChapterTracker struct {
	current int
}

// NewChapterTracker starts tracking at year.
func NewChapterTracker(year float64) *ChapterTracker {
	return &ChapterTracker{current: ChapterIndex(Floor(year))}
}

// Observe records year and returns the entered chapter when playing and
// the chapter changed.
func (t *ChapterTracker) Observe(year float64, playing bool) (Chapter, bool) {
	idx := ChapterIndex(Floor(year))
	if !playing {
		t.current = idx
		return Chapter{}, false
	}
	if idx >= 0 && idx != t.current {
		t.current = idx
		return Chapters[idx], true
	}
	return Chapter{}, false
}

// Current returns the tracked chapter index.
func (t *ChapterTracker) Current() int { return t.current }
