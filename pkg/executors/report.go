package executors

import (
	"github.com/yurifrl/compta/pkg/compare"
	"github.com/yurifrl/compta/pkg/importer"
	"github.com/yurifrl/compta/pkg/models"
)

// Entry is one imported day and how it compares with the ledger.
type Entry struct {
	Source string
	Row    importer.Row
	Stored *models.Record
	Status compare.Status
}

// Report is the outcome of planning a manifest.
type Report struct {
	Items   []Entry
	Invalid []Invalid
}

// Invalid is a row that was understood but could not be imported.
type Invalid struct {
	Source string
	Row    importer.Row
}

func (r *Report) Count(s compare.Status) int {
	n := 0
	for _, it := range r.Items {
		if it.Status == s {
			n++
		}
	}
	return n
}

// ToWrite returns the entries apply would write.
func (r *Report) ToWrite(replace bool) []Entry {
	var out []Entry
	for _, it := range r.Items {
		if it.Status == compare.New || (replace && it.Status == compare.Differs) {
			out = append(out, it)
		}
	}
	return out
}
