package domain

// Merge folds an incoming actor into the stored one. Non-empty incoming
// required fields win; optional fields win only when present, so partial rows
// never erase stored values.
func (a Actor) Merge(in Actor) Actor {
	out := a
	if in.DisplayName != "" {
		out.DisplayName = in.DisplayName
	}
	if in.Org != "" {
		out.Org = in.Org
	}
	if in.Email != nil {
		out.Email = in.Email
	}
	if in.Role != nil {
		out.Role = in.Role
	}
	return out
}

// Merge folds an incoming model into the stored one.
func (m Model) Merge(in Model) Model {
	out := m
	if in.Program != "" {
		out.Program = in.Program
	}
	if in.ATA != "" {
		out.ATA = in.ATA
	}
	if in.Variant != nil {
		out.Variant = in.Variant
	}
	if in.Title != nil {
		out.Title = in.Title
	}
	return out
}

// Merge folds an incoming action into the stored one. Merging the same row
// twice yields the same result as merging it once, and two rows carrying
// disjoint optional fields produce the same record regardless of order.
func (a Action) Merge(in Action) Action {
	out := a
	if in.Subject != "" {
		out.Subject = in.Subject
	}
	if in.Owner != "" {
		out.Owner = in.Owner
	}
	if in.Program != "" {
		out.Program = in.Program
	}
	if in.ATAChapter != "" {
		out.ATAChapter = in.ATAChapter
	}
	if in.Text != "" {
		out.Text = in.Text
	}
	if in.Status != "" {
		out.Status = in.Status
	}
	if in.Org != nil {
		out.Org = in.Org
	}
	if in.OwnerName != nil {
		out.OwnerName = in.OwnerName
	}
	if in.Milestone != nil {
		out.Milestone = in.Milestone
	}
	if in.StartDate != nil {
		out.StartDate = in.StartDate
	}
	if in.DueOn != nil {
		out.DueOn = in.DueOn
	}
	if in.Priority != nil {
		out.Priority = in.Priority
	}
	if in.Answers != nil {
		out.Answers = in.Answers
	}
	if in.Source != nil {
		out.Source = in.Source
	}
	return out
}

// Merge folds an incoming projection row into the stored one.
func (l LatestStatus) Merge(in LatestStatus) LatestStatus {
	out := l
	if in.Subject != "" {
		out.Subject = in.Subject
	}
	if in.Milestone != "" {
		out.Milestone = in.Milestone
	}
	if in.Status != "" {
		out.Status = in.Status
	}
	if in.Priority != nil {
		out.Priority = in.Priority
	}
	return out
}

// Merge folds an incoming event into the stored one (same ID).
func (e Event) Merge(in Event) Event {
	out := e
	if in.ModelID != "" {
		out.ModelID = in.ModelID
	}
	if !in.When.IsZero() {
		out.When = in.When
	}
	if in.Kind != "" {
		out.Kind = in.Kind
	}
	if in.Note != nil {
		out.Note = in.Note
	}
	return out
}

// StringPtr returns a pointer to s. Convenience for building optional fields.
func StringPtr(s string) *string { return &s }
