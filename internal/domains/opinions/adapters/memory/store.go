package memory

import (
	"context"
	"errors"
	"sync"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

var (
	_ ports.Store                = (*Store)(nil)
	_ ports.OpinionRepository    = (*opinionRepository)(nil)
	_ ports.ReceptorRepository   = (*receptorRepository)(nil)
	_ ports.AttachmentRepository = (*attachmentRepository)(nil)
)

// Store is an in-memory opinion store for development and tests. Units of work run one
// at a time and are rolled back by restoring a snapshot taken when they started.
type Store struct {
	txMu sync.Mutex
	mu   sync.RWMutex
	data state

	faultMu sync.Mutex
	faults  map[string]*fault
}

type fault struct {
	skip int
	err  error
}

type state struct {
	opinions       map[int64]domain.Opinion
	receptors      map[int64]domain.Receptor
	attachments    map[int64]domain.Attachment
	nextOpinion    int64
	nextReceptor   int64
	nextAttachment int64
}

// NewStore constructs an empty store.
func NewStore() *Store {
	return &Store{
		data: state{
			opinions:    map[int64]domain.Opinion{},
			receptors:   map[int64]domain.Receptor{},
			attachments: map[int64]domain.Attachment{},
		},
		faults: map[string]*fault{},
	}
}

// FailNext makes the next call of the named operation (for example "receptors.update")
// return err. Used to exercise rollback paths.
func (s *Store) FailNext(op string, err error) {
	s.FailAfter(op, 0, err)
}

// FailAfter lets skip calls of the named operation succeed and fails the one after with err.
func (s *Store) FailAfter(op string, skip int, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.faults[op] = &fault{skip: skip, err: err}
}

func (s *Store) fault(op string) error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	f, ok := s.faults[op]
	if !ok {
		return nil
	}
	if f.skip > 0 {
		f.skip--
		return nil
	}
	delete(s.faults, op)
	return f.err
}

// Do runs fn against the store. When fn fails every write it made is discarded.
func (s *Store) Do(ctx context.Context, fn func(ports.Repositories) error) (err error) {
	if fn == nil {
		return errors.New("unit of work function is nil")
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.data.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()
	return fn(s)
}

func (s *Store) restore(snapshot state) {
	s.mu.Lock()
	s.data = snapshot
	s.mu.Unlock()
}

// Opinions returns the opinion repository.
func (s *Store) Opinions() ports.OpinionRepository { return &opinionRepository{s} }

// Receptors returns the receptor repository.
func (s *Store) Receptors() ports.ReceptorRepository { return &receptorRepository{s} }

// Attachments returns the attachment repository.
func (s *Store) Attachments() ports.AttachmentRepository { return &attachmentRepository{s} }

func (st state) clone() state {
	out := state{
		opinions:       make(map[int64]domain.Opinion, len(st.opinions)),
		receptors:      make(map[int64]domain.Receptor, len(st.receptors)),
		attachments:    make(map[int64]domain.Attachment, len(st.attachments)),
		nextOpinion:    st.nextOpinion,
		nextReceptor:   st.nextReceptor,
		nextAttachment: st.nextAttachment,
	}
	for id, o := range st.opinions {
		out.opinions[id] = o
	}
	for id, r := range st.receptors {
		out.receptors[id] = *r.Clone()
	}
	for id, a := range st.attachments {
		out.attachments[id] = a.Clone()
	}
	return out
}

// activeFolioTaken reports whether another opinion of the folio is active.
// Callers hold s.mu.
func (s *Store) activeFolioTaken(folio string, exceptID int64) bool {
	for id, o := range s.data.opinions {
		if id != exceptID && o.Active && o.Folio == folio {
			return true
		}
	}
	return false
}

// insertAttachment stores a copy and returns it with its id. Callers hold s.mu.
func (s *Store) insertAttachment(a domain.Attachment) domain.Attachment {
	a = a.Clone()
	if a.ID == 0 {
		s.data.nextAttachment++
		a.ID = s.data.nextAttachment
	} else if a.ID > s.data.nextAttachment {
		s.data.nextAttachment = a.ID
	}
	s.data.attachments[a.ID] = a
	return a.Clone()
}

// liveAttachments returns a newest-first copy of the attachments matching keep. Callers hold s.mu.
func (s *Store) liveAttachments(keep func(domain.Attachment) bool) []domain.Attachment {
	var out []domain.Attachment
	for _, a := range s.data.attachments {
		if !a.Deleted && keep(a) {
			out = append(out, a.Clone())
		}
	}
	domain.SortNewestFirst(out)
	return out
}

func ownedByOpinion(id int64) func(domain.Attachment) bool {
	return func(a domain.Attachment) bool { return a.OpinionID != nil && *a.OpinionID == id }
}

func ownedByReceptor(id int64) func(domain.Attachment) bool {
	return func(a domain.Attachment) bool { return a.ReceptorID != nil && *a.ReceptorID == id }
}

// receptorAggregate returns a copy of the receptor with its live attachments. Callers hold s.mu.
func (s *Store) receptorAggregate(r domain.Receptor) *domain.Receptor {
	clone := r.Clone()
	clone.Attachments = s.liveAttachments(ownedByReceptor(r.ID))
	return clone
}
