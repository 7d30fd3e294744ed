package registry

import (
	"sort"
	"strings"

	"github.com/triviahub/triviad/internal/domain"
)

const (
	maxNameLen  = 15
	defaultName = "anonymous"
)

type participant struct {
	domain.Participant
	joinOrder int
}

// Registry holds the participants of the single session. It is owned by the
// game service, which serializes all access; Registry itself is not safe for
// concurrent use.
type Registry struct {
	participants map[string]*participant
	joined       int
}

func New() *Registry {
	return &Registry{
		participants: make(map[string]*participant),
	}
}

// Join adds a participant with a zero score and a placeholder name.
// Joining an already-present identity is a no-op.
func (r *Registry) Join(id string) {
	if _, ok := r.participants[id]; ok {
		return
	}

	r.participants[id] = &participant{
		Participant: domain.Participant{
			ID:   id,
			Name: defaultName,
		},
		joinOrder: r.joined,
	}
	r.joined++
}

// SetName renames a participant. Unknown identities are ignored.
func (r *Registry) SetName(id, raw string) {
	p, ok := r.participants[id]
	if !ok {
		return
	}

	p.Name = cleanName(raw)
}

// Leave removes a participant. Absent identities are ignored.
func (r *Registry) Leave(id string) {
	delete(r.participants, id)
}

func (r *Registry) Count() int {
	return len(r.participants)
}

// MarkAnswered flags the participant as having answered the current question
// and reports whether the submission should be taken: it returns false for
// unknown identities and repeated submissions.
func (r *Registry) MarkAnswered(id string) bool {
	p, ok := r.participants[id]
	if !ok || p.Answered {
		return false
	}

	p.Answered = true
	return true
}

// AddScore awards points to a participant. Scores only grow; a session
// restart is the only thing that zeroes them.
func (r *Registry) AddScore(id string, points int) {
	if p, ok := r.participants[id]; ok {
		p.Score += points
	}
}

// ResetRoundFlags clears every answered flag; called on each question reveal.
func (r *Registry) ResetRoundFlags() {
	for _, p := range r.participants {
		p.Answered = false
	}
}

// ResetScores zeroes every score; called on session (re)start.
func (r *Registry) ResetScores() {
	for _, p := range r.participants {
		p.Score = 0
	}
}

// Snapshot returns a copy of all participants in join order. Mutating the
// returned slice does not affect the registry, so it is safe to hand to
// broadcast serialization.
func (r *Registry) Snapshot() []domain.Participant {
	ps := make([]*participant, 0, len(r.participants))
	for _, p := range r.participants {
		ps = append(ps, p)
	}
	sort.Slice(ps, func(i, j int) bool { return ps[i].joinOrder < ps[j].joinOrder })

	out := make([]domain.Participant, 0, len(ps))
	for _, p := range ps {
		out = append(out, p.Participant)
	}
	return out
}

func cleanName(raw string) string {
	name := strings.TrimSpace(raw)
	if rs := []rune(name); len(rs) > maxNameLen {
		name = string(rs[:maxNameLen])
	}
	if name == "" {
		return defaultName
	}
	return name
}
