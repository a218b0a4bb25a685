package database

import (
	"github.com/benvon/questline/internal/services/analysis"
)

// Ensure the store satisfies the orchestrator's persistence surface
var _ analysis.QuestStore = (*Store)(nil)
