package topic

import (
	"github.com/emilykay2/tbuie/internal/models"
	"github.com/emilykay2/tbuie/internal/validate"
)

// Evaluate predicts a label for every assigned document that has a gold label
// and tabulates the pair. Documents without a gold label are skipped; empty
// documents get the majority training label.
func Evaluate(c *models.Corpus, labelAttr string, assignments []Assignment, cl *Classifier, table *validate.Contingency) {
	for _, a := range assignments {
		gold, ok := c.Doc(a.Position).Label(labelAttr)
		if !ok {
			continue
		}
		if a.Empty {
			table.Add(gold, cl.Majority())
			continue
		}
		table.Add(gold, cl.Predict(a.Theta))
	}
}
