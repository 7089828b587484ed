package annotations

import "github.com/immarkus/immarkus-engine/pkg/models"

// RepairAnnotations drops tag bodies whose entity class is not known,
// leaving every other body and every annotation in place. The input is not
// modified.
func RepairAnnotations(annotations []models.Annotation, known func(entityTypeID string) bool) []models.Annotation {
	out := make([]models.Annotation, 0, len(annotations))
	for _, a := range annotations {
		c := a.Clone()
		if len(c.Body) > 0 {
			bodies := make(models.AnnotationBodies, 0, len(c.Body))
			for _, b := range c.Body {
				if b.IsTag() && !known(b.Source) {
					continue
				}
				bodies = append(bodies, b)
			}
			c.Body = bodies
		}
		out = append(out, c)
	}
	return out
}
