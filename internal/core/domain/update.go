package domain

// UpdateKind discriminates ChatMessageUpdate variants. The set is open:
// consumers must route kinds they don't recognize to a fallback branch
// instead of treating them as errors.
type UpdateKind string

const (
	UpdateKindAdded UpdateKind = "added"

	// Reserved for future protocol revisions.
	UpdateKindEdited        UpdateKind = "edited"
	UpdateKindDeleted       UpdateKind = "deleted"
	UpdateKindStatusChanged UpdateKind = "status_changed"
)

// ChatMessageUpdate is one change to a chat's message set.
type ChatMessageUpdate struct {
	Kind    UpdateKind
	Message ChatMessage
}

// MessageAdded builds the only update variant currently emitted.
func MessageAdded(msg ChatMessage) ChatMessageUpdate {
	return ChatMessageUpdate{Kind: UpdateKindAdded, Message: msg}
}

// Route dispatches on the update's kind. Kinds the consumer doesn't handle
// go to other, so new variants degrade to the fallback instead of being
// silently misread as additions.
func (u ChatMessageUpdate) Route(added func(ChatMessage), other func(ChatMessageUpdate)) {
	switch u.Kind {
	case UpdateKindAdded:
		if added != nil {
			added(u.Message)
		}
	default:
		if other != nil {
			other(u)
		}
	}
}
