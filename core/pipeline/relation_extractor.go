package pipeline

// RelationshipCoOccurs links entities mentioned close to each other.
const RelationshipCoOccurs = "CO_OCCURS_WITH"

// DefaultCoOccurrenceWindow is the maximum byte distance of co-occurring entities.
const DefaultCoOccurrenceWindow = 100

// CoOccurrenceRelationExtractor links every pair of distinct entities whose
// mentions start within window bytes of each other.
func CoOccurrenceRelationExtractor(window int) RelationExtractFunc {
	if window <= 0 {
		window = DefaultCoOccurrenceWindow
	}

	return func(entities []ExtractedEntity) []ExtractedRelation {
		var relations []ExtractedRelation
		for i := 0; i < len(entities); i++ {
			for j := i + 1; j < len(entities); j++ {
				entity1 := entities[i]
				entity2 := entities[j]
				if entity1.Key() == entity2.Key() {
					continue
				}

				distance := entity2.Start - entity1.Start
				if distance < 0 {
					distance = -distance
				}
				if distance >= window {
					continue
				}

				relations = append(relations, ExtractedRelation{
					Source: entity1,
					Target: entity2,
					Type:   RelationshipCoOccurs,
					Weight: coOccurrenceWeight(distance, window),
				})
			}
		}
		return relations
	}
}

// coOccurrenceWeight is 1 for adjacent entities and 0.5 at the window edge.
func coOccurrenceWeight(distance int, window int) float64 {
	weight := 1.0 - (float64(distance) / float64(2*window))
	if weight < 0 {
		return 0.0
	}
	return weight
}
