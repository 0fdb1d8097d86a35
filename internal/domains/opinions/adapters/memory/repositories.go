package memory

import (
	"context"
	"errors"
	"sort"

	"github.com/Apurer/opinions-api/internal/domains/opinions/domain"
	"github.com/Apurer/opinions-api/internal/domains/opinions/ports"
)

type opinionRepository struct{ s *Store }

func (r *opinionRepository) Create(_ context.Context, opinion *domain.Opinion) error {
	if opinion == nil {
		return errors.New("opinion is nil")
	}
	if err := r.s.fault("opinions.create"); err != nil {
		return err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if opinion.Active && s.activeFolioTaken(opinion.Folio, 0) {
		return ports.ErrActiveOpinionExists
	}
	s.data.nextOpinion++
	opinion.ID = s.data.nextOpinion
	s.data.opinions[opinion.ID] = scalarOpinion(opinion)

	for _, receptor := range opinion.Receptors {
		s.data.nextReceptor++
		receptor.ID = s.data.nextReceptor
		receptor.OpinionID = opinion.ID
		for i := range receptor.Attachments {
			id := receptor.ID
			receptor.Attachments[i].ReceptorID = &id
			receptor.Attachments[i] = s.insertAttachment(receptor.Attachments[i])
		}
		s.data.receptors[receptor.ID] = scalarReceptor(receptor)
	}
	for i := range opinion.Attachments {
		id := opinion.ID
		opinion.Attachments[i].OpinionID = &id
		opinion.Attachments[i] = s.insertAttachment(opinion.Attachments[i])
	}
	return nil
}

func (r *opinionRepository) GetByID(_ context.Context, id int64) (*domain.Opinion, error) {
	if err := r.s.fault("opinions.get"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	o, ok := r.s.data.opinions[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return r.aggregate(o), nil
}

// aggregate assembles the opinion with receptors and live attachments. Callers hold s.mu.
func (r *opinionRepository) aggregate(o domain.Opinion) *domain.Opinion {
	out := o
	out.Attachments = r.s.liveAttachments(ownedByOpinion(o.ID))
	for _, rec := range r.s.data.receptors {
		if rec.OpinionID == o.ID {
			out.Receptors = append(out.Receptors, r.s.receptorAggregate(rec))
		}
	}
	sort.Slice(out.Receptors, func(i, j int) bool { return out.Receptors[i].ID < out.Receptors[j].ID })
	return &out
}

// LockFolio is a no-op: units of work already run one at a time.
func (r *opinionRepository) LockFolio(_ context.Context, _ string) error {
	return r.s.fault("opinions.lock")
}

func (r *opinionRepository) FindActiveByFolio(_ context.Context, folio string) (*domain.Opinion, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, o := range r.s.data.opinions {
		if o.Active && o.Folio == folio {
			return r.aggregate(o), nil
		}
	}
	return nil, nil
}

func (r *opinionRepository) MaxVersion(_ context.Context, folio string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	highest := 0
	for _, o := range r.s.data.opinions {
		if o.Folio == folio && o.Version > highest {
			highest = o.Version
		}
	}
	return highest, nil
}

func (r *opinionRepository) ListByFolio(_ context.Context, folio string) ([]*domain.Opinion, error) {
	if err := r.s.fault("opinions.list"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*domain.Opinion
	for _, o := range r.s.data.opinions {
		if o.Folio == folio {
			list = append(list, r.aggregate(o))
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].RequestedAt.Equal(list[j].RequestedAt) {
			return list[i].ID > list[j].ID
		}
		return list[i].RequestedAt.After(list[j].RequestedAt)
	})
	return list, nil
}

func (r *opinionRepository) Update(_ context.Context, opinion *domain.Opinion) error {
	if opinion == nil {
		return errors.New("opinion is nil")
	}
	if err := r.s.fault("opinions.update"); err != nil {
		return err
	}
	s := r.s
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data.opinions[opinion.ID]; !ok {
		return ports.ErrNotFound
	}
	if opinion.Active && s.activeFolioTaken(opinion.Folio, opinion.ID) {
		return ports.ErrActiveOpinionExists
	}
	s.data.opinions[opinion.ID] = scalarOpinion(opinion)
	return nil
}

type receptorRepository struct{ s *Store }

func (r *receptorRepository) GetByID(_ context.Context, id int64) (*domain.Receptor, error) {
	if err := r.s.fault("receptors.get"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	rec, ok := r.s.data.receptors[id]
	if !ok {
		return nil, ports.ErrNotFound
	}
	return r.s.receptorAggregate(rec), nil
}

func (r *receptorRepository) GetByEnvioID(_ context.Context, envioID string) (*domain.Receptor, error) {
	if err := r.s.fault("receptors.get"); err != nil {
		return nil, err
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	if envioID == "" {
		return nil, ports.ErrNotFound
	}
	for _, rec := range r.s.data.receptors {
		if rec.EnvioID == envioID {
			return r.s.receptorAggregate(rec), nil
		}
	}
	return nil, ports.ErrNotFound
}

func (r *receptorRepository) CountActive(_ context.Context, opinionID int64, excludeReceptorID int64) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	count := 0
	for id, rec := range r.s.data.receptors {
		if rec.OpinionID == opinionID && id != excludeReceptorID && rec.Active {
			count++
		}
	}
	return count, nil
}

func (r *receptorRepository) Update(_ context.Context, receptor *domain.Receptor) error {
	if receptor == nil {
		return errors.New("receptor is nil")
	}
	if err := r.s.fault("receptors.update"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.data.receptors[receptor.ID]; !ok {
		return ports.ErrNotFound
	}
	r.s.data.receptors[receptor.ID] = scalarReceptor(receptor)
	return nil
}

func (r *receptorRepository) ListPendingSignature(_ context.Context) ([]*domain.Receptor, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var list []*domain.Receptor
	for _, rec := range r.s.data.receptors {
		if rec.PendingSignature() {
			list = append(list, r.s.receptorAggregate(rec))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

type attachmentRepository struct{ s *Store }

func (r *attachmentRepository) Append(_ context.Context, attachments []domain.Attachment) ([]domain.Attachment, error) {
	if err := r.s.fault("attachments.append"); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := make([]domain.Attachment, 0, len(attachments))
	for _, a := range attachments {
		a.ID = 0
		out = append(out, r.s.insertAttachment(a))
	}
	return out, nil
}

func (r *attachmentRepository) Upsert(_ context.Context, attachments []domain.Attachment) error {
	if err := r.s.fault("attachments.upsert"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range attachments {
		if _, ok := r.s.data.attachments[a.ID]; !ok {
			a.ID = 0
		}
		r.s.insertAttachment(a)
	}
	return nil
}

func (r *attachmentRepository) SoftDelete(_ context.Context, ids []int64) error {
	if err := r.s.fault("attachments.delete"); err != nil {
		return err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range ids {
		if a, ok := r.s.data.attachments[id]; ok {
			a.Deleted = true
			r.s.data.attachments[id] = a
		}
	}
	return nil
}

func scalarOpinion(o *domain.Opinion) domain.Opinion {
	out := *o
	out.Receptors = nil
	out.Attachments = nil
	return out
}

func scalarReceptor(r *domain.Receptor) domain.Receptor {
	out := *r.Clone()
	out.Attachments = nil
	return out
}
