package models

// All lists every persisted model in migration order.
func All() []interface{} {
	return []interface{}{
		&Source{},
		&SourceAtVersion{},
		&Category{},
		&Rule{},
		&Ruleset{},
		&Notification{},
	}
}
