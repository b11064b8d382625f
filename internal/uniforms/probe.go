package uniforms

import (
	"go.uber.org/zap"

	"github.com/Faultbox/maps-capture/internal/logger"
	"github.com/Faultbox/maps-capture/internal/replay"
)

// Prober answers "does this draw call expose uniform X" through a replay
// session. Results are cached per event since every probe moves the cursor.
type Prober struct {
	session *replay.Session
	cache   map[uint32]Block
	last    Block
}

// NewProber returns a prober reading through s.
func NewProber(s *replay.Session) *Prober {
	return &Prober{session: s, cache: make(map[uint32]Block)}
}

// Globals returns the $Globals block of an event.
func (p *Prober) Globals(eventID uint32) (Block, error) {
	if b, ok := p.cache[eventID]; ok {
		p.last = b
		return b, nil
	}
	set, err := Extract(p.session, eventID)
	if err != nil {
		return nil, err
	}
	b := set.Globals()
	p.cache[eventID] = b
	p.last = b
	return b, nil
}

// HasUniform reports whether the event's $Globals declares name. Events
// whose constants cannot be read have no uniforms.
func (p *Prober) HasUniform(eventID uint32, name string) bool {
	b, err := p.Globals(eventID)
	if err != nil {
		logger.Debug("cannot probe uniforms", zap.Uint32("event", eventID), zap.Error(err))
		return false
	}
	return b.Has(name)
}

// LastGlobals returns the most recently probed $Globals block.
func (p *Prober) LastGlobals() Block {
	return p.last
}
