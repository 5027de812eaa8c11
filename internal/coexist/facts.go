package coexist

import "github.com/intelligrit/chronomap/internal/model"

type fact struct {
	model.YearRange
	text string
}

var globalFacts = []fact{
	{model.YearRange{StartYear: -500, EndYear: -401}, "Iron Age civilizations span continents."},
	{model.YearRange{StartYear: -400, EndYear: -301}, "Classical Mediterranean and South Asian states rise."},
	{model.YearRange{StartYear: -300, EndYear: -201}, "Hellenistic and Mauryan influence peaks."},
	{model.YearRange{StartYear: -200, EndYear: -101}, "Roman and Han expansion reshape Eurasia."},
	{model.YearRange{StartYear: -100, EndYear: 100}, "Largest territorial extents in their eras."},
	{model.YearRange{StartYear: 101, EndYear: 300}, "Imperial consolidation and trade corridors."},
	{model.YearRange{StartYear: 301, EndYear: 500}, "Late antiquity and major migrations."},
	{model.YearRange{StartYear: 501, EndYear: 800}, "Post-Roman and Tang-era power centers."},
	{model.YearRange{StartYear: 801, EndYear: 1100}, "Medieval empires and trade networks."},
	{model.YearRange{StartYear: 1101, EndYear: 1400}, "Crusades, Mongols, and maritime trade."},
	{model.YearRange{StartYear: 1401, EndYear: 1600}, "Age of exploration and gunpowder empires."},
	{model.YearRange{StartYear: 1601, EndYear: 1900}, "Colonial and industrial age boundaries."},
}

// GlobalFact returns the curated fact for year's bucket.
func GlobalFact(year int) (string, bool) {
	for _, f := range globalFacts {
		if f.Covers(year) {
			return f.text, true
		}
	}
	return "", false
}
