package convo

func (m *Memory) getOrCreate(userID string) *window {
	w, ok := m.windows[userID]
	if !ok {
		w = &window{lastTouched: m.now()}
		m.windows[userID] = w
	}
	return w
}

// Append adds a message to userID's window, enforcing all three memory
// caps. It is idempotent by ExternalID: appending a message whose
// ExternalID already exists in the window is a no-op. Append never
// returns an error to the caller — a malformed input is simply dropped,
// matching the teacher's "never fail the caller" rule for append-only
// conversational stores.
func (m *Memory) Append(userID string, role Role, content string, opts AppendOptions) {
	if userID == "" {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.getOrCreate(userID)
	now := m.now()
	w.lastTouched = now

	if opts.ExternalID != "" {
		for _, existing := range w.messages {
			if existing.ExternalID == opts.ExternalID {
				return
			}
		}
	}

	msg := Message{
		Role:              role,
		Content:           content,
		Timestamp:         now,
		ExternalID:        opts.ExternalID,
		ReplyToExternalID: opts.ReplyToExternalID,
		Metadata:          opts.Metadata,
	}
	msg.EstimatedTokens = estimateTokens(content, m.limits.CharsPerToken)

	w.messages = append(w.messages, msg)

	if role == RoleUser || role == RoleAssistant {
		evictOldestContext(w, m.limits.MaxContextMsgs)
	}
	evictByImportance(w, m.limits.MaxTotalTokens)
	evictOldestSystem(w, m.limits.MaxSystemMsgs)
}

// evictOldestContext removes the oldest non-system message until the
// count of user/assistant messages is within max.
func evictOldestContext(w *window, max int) {
	for i := 0; i < evictionGuard; i++ {
		if countContext(w.messages) <= max {
			return
		}
		idx := -1
		for j, msg := range w.messages {
			if msg.Role == RoleUser || msg.Role == RoleAssistant {
				idx = j
				break
			}
		}
		if idx == -1 {
			return
		}
		w.messages = append(w.messages[:idx], w.messages[idx+1:]...)
	}
}

// evictByImportance drops the lowest-importance messages until the
// total estimated token count is within max.
func evictByImportance(w *window, maxTokens int) {
	for i := 0; i < evictionGuard; i++ {
		if sumTokens(w.messages) <= maxTokens || len(w.messages) == 0 {
			return
		}
		worst := 0
		worstScore := importance(w.messages[0], 0, len(w.messages))
		for j := 1; j < len(w.messages); j++ {
			s := importance(w.messages[j], j, len(w.messages))
			if s < worstScore {
				worst, worstScore = j, s
			}
		}
		w.messages = append(w.messages[:worst], w.messages[worst+1:]...)
	}
}

// evictOldestSystem drops the oldest system message until the count of
// system messages is within max.
func evictOldestSystem(w *window, max int) {
	for i := 0; i < evictionGuard; i++ {
		if countSystem(w.messages) <= max {
			return
		}
		idx := -1
		for j, msg := range w.messages {
			if msg.Role == RoleSystem {
				idx = j
				break
			}
		}
		if idx == -1 {
			return
		}
		w.messages = append(w.messages[:idx], w.messages[idx+1:]...)
	}
}

// importance scores a message for eviction purposes: higher survives
// longer. Recency dominates; role and metadata are tie-breaking biases
// layered on top so a recent disambiguation marker outlives an equally
// recent plain system note.
func importance(msg Message, index, total int) float64 {
	recency := float64(index+1) / float64(total)
	score := recency * 10

	switch msg.Role {
	case RoleUser, RoleAssistant:
		score += 3
	case RoleSystem:
		score += 0
	}

	if msg.Metadata != nil {
		switch msg.Metadata.Kind {
		case MetadataDisambiguation:
			score += 2
		case MetadataRecentEntities:
			score += 1
		}
	}
	return score
}

func countContext(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == RoleUser || m.Role == RoleAssistant {
			n++
		}
	}
	return n
}

func countSystem(msgs []Message) int {
	n := 0
	for _, m := range msgs {
		if m.Role == RoleSystem {
			n++
		}
	}
	return n
}

func sumTokens(msgs []Message) int {
	total := 0
	for _, m := range msgs {
		total += m.EstimatedTokens
	}
	return total
}

// Recent returns a copy of the last n messages in chronological order.
func (m *Memory) Recent(userID string, n int) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[userID]
	if !ok {
		return nil
	}
	msgs := w.messages
	if n > 0 && len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out
}

// FindByExternalID returns the stored message with the given external
// id, if present, used for reply-threading.
func (m *Memory) FindByExternalID(userID, id string) (Message, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[userID]
	if !ok {
		return Message{}, false
	}
	for _, msg := range w.messages {
		if msg.ExternalID == id {
			return msg, true
		}
	}
	return Message{}, false
}

// StoreDisambiguation appends a system-role marker carrying a
// DisambiguationContext with a 5-minute (configurable) expiry.
func (m *Memory) StoreDisambiguation(userID string, candidates []ResolutionCandidate, entityType string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w := m.getOrCreate(userID)
	now := m.now()
	w.lastTouched = now

	ctx := &DisambiguationContext{
		Candidates: candidates,
		EntityType: entityType,
		ExpiresAt:  now.Add(m.limits.DisambiguationTTL),
	}
	msg := Message{
		Role:      RoleSystem,
		Content:   "disambiguation-pending",
		Timestamp: now,
		Metadata:  &Metadata{Kind: MetadataDisambiguation, Disambiguation: ctx},
	}
	msg.EstimatedTokens = estimateTokens(msg.Content, m.limits.CharsPerToken)
	w.messages = append(w.messages, msg)
	evictOldestSystem(w, m.limits.MaxSystemMsgs)
}

// LastDisambiguation returns the most recent unexpired
// DisambiguationContext for userID, or false if none is pending.
func (m *Memory) LastDisambiguation(userID string) (DisambiguationContext, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[userID]
	if !ok {
		return DisambiguationContext{}, false
	}
	now := m.now()
	for i := len(w.messages) - 1; i >= 0; i-- {
		meta := w.messages[i].Metadata
		if meta == nil || meta.Kind != MetadataDisambiguation {
			continue
		}
		if meta.Disambiguation.expired(now) {
			return DisambiguationContext{}, false
		}
		return *meta.Disambiguation, true
	}
	return DisambiguationContext{}, false
}

// ClearDisambiguation strips the disambiguation metadata from the most
// recent system marker that carries it.
func (m *Memory) ClearDisambiguation(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.windows[userID]
	if !ok {
		return
	}
	for i := len(w.messages) - 1; i >= 0; i-- {
		meta := w.messages[i].Metadata
		if meta != nil && meta.Kind == MetadataDisambiguation {
			w.messages[i].Metadata = nil
			return
		}
	}
}

// Stats returns the window's current counts and totals against limits.
func (m *Memory) Stats(userID string) Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	st := Stats{MsgLimit: m.limits.MaxContextMsgs, TokenLimit: m.limits.MaxTotalTokens}
	w, ok := m.windows[userID]
	if !ok {
		return st
	}
	for _, msg := range w.messages {
		switch msg.Role {
		case RoleUser:
			st.UserMsgs++
		case RoleAssistant:
			st.AssistantMsgs++
		case RoleSystem:
			st.SystemMsgs++
		}
		st.TotalTokens += msg.EstimatedTokens
	}
	return st
}

// Clear drops the entire window for userID.
func (m *Memory) Clear(userID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.windows, userID)
}

// CleanupIdle drops windows whose last message is older than the
// configured ConversationTTL. Returns the number of windows dropped.
func (m *Memory) CleanupIdle() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.limits.ConversationTTL <= 0 {
		return 0
	}
	now := m.now()
	dropped := 0
	for userID, w := range m.windows {
		if now.Sub(w.lastTouched) > m.limits.ConversationTTL {
			delete(m.windows, userID)
			dropped++
		}
	}
	return dropped
}
