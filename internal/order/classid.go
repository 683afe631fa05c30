package order

import (
	"fmt"
	"strings"
)

// Academy product tags that feed the class identifier.
const (
	tagBeginner     = "academy_beginner"
	tagIntermediate = "academy_intermediate"
	tagSquad        = "squad"
	batchTagPrefix  = "batch_"
)

// ClassID derives the structured class identifier from a product's tags and
// its running purchase count:
//
//	VA + level code (B/I) + batch number + SQ + zero-padded count + P
//
// Tags {academy_beginner, batch_7, squad} with count 5 yield "VAB7SQ005P".
// A beginner tag always wins over an intermediate one, regardless of tag
// order. Unrecognized tags contribute nothing.
func ClassID(tags []string, purchaseCount int) string {
	var hasBeginner, hasIntermediate bool
	var batch, squad, player string

	for _, tag := range tags {
		switch {
		case tag == tagBeginner:
			hasBeginner = true
		case tag == tagIntermediate:
			hasIntermediate = true
		case tag == tagSquad:
			squad = "SQ"
			player = "P"
		case strings.HasPrefix(tag, batchTagPrefix) && batch == "":
			batch = strings.TrimPrefix(tag, batchTagPrefix)
		}
	}

	var level string
	switch {
	case hasBeginner:
		level = "B"
	case hasIntermediate:
		level = "I"
	}

	return fmt.Sprintf("VA%s%s%s%03d%s", level, batch, squad, purchaseCount, player)
}
