// Package selection holds interactive multi-step picks in redis. Each
// selection lives until its deadline; after that every call fails with
// Timeout and whatever was picked is gone. Nothing here touches the store.
package selection

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/libertypfc/Hockeybot-sub000/internals/auth"
	"github.com/libertypfc/Hockeybot-sub000/internals/errs"
	"github.com/libertypfc/Hockeybot-sub000/pkg/kvstore"
)

type SelectionService struct {
	KV  kvstore.KVStore
	TTL time.Duration
	Now func() time.Time
}

func New(kv kvstore.KVStore, ttl time.Duration) *SelectionService {
	return &SelectionService{
		KV:  kv,
		TTL: ttl,
		Now: func() time.Time { return time.Now().UTC() },
	}
}

func (s *SelectionService) Begin(actor auth.Actor, purpose string) (Selection, error) {
	sel := Selection{
		ID:       uuid.NewString(),
		Owner:    actor.ID,
		Purpose:  purpose,
		Items:    []string{},
		Deadline: s.Now().Add(s.TTL),
	}
	payload, err := json.Marshal(sel)
	if err != nil {
		return Selection{}, err
	}
	if err := s.KV.Set(metaKey(sel.ID), string(payload), s.TTL); err != nil {
		return Selection{}, err
	}
	return sel, nil
}

// load returns the live selection owned by actor and the time left on it.
func (s *SelectionService) load(actor auth.Actor, id string) (Selection, time.Duration, error) {
	raw, err := s.KV.Get(metaKey(id))
	if kvstore.IsMiss(err) {
		return Selection{}, 0, &errs.Error{Kind: errs.Timeout, Entity: "selection", ID: id, Msg: "selection expired or never existed"}
	}
	if err != nil {
		return Selection{}, 0, err
	}
	var sel Selection
	if err := json.Unmarshal([]byte(raw), &sel); err != nil {
		return Selection{}, 0, err
	}
	if sel.Owner != actor.ID {
		return Selection{}, 0, errs.New(errs.Unauthorized, "selection %s belongs to someone else", id)
	}
	left := sel.Deadline.Sub(s.Now())
	if left <= 0 {
		s.discard(id)
		return Selection{}, 0, &errs.Error{Kind: errs.Timeout, Entity: "selection", ID: id, Msg: "selection expired"}
	}
	return sel, left, nil
}

func (s *SelectionService) Add(actor auth.Actor, id, item string) error {
	if item == "" {
		return errs.New(errs.InvalidArgument, "nothing to add")
	}
	_, left, err := s.load(actor, id)
	if err != nil {
		return err
	}
	if err := s.KV.RPush(itemsKey(id), item); err != nil {
		return err
	}
	return s.KV.Expire(itemsKey(id), left)
}

// Finish closes the selection and returns what was picked.
func (s *SelectionService) Finish(actor auth.Actor, id string) (Selection, error) {
	sel, _, err := s.load(actor, id)
	if err != nil {
		return Selection{}, err
	}
	sel.Items, err = s.KV.LRange(itemsKey(id), 0, -1)
	if err != nil {
		return Selection{}, err
	}
	s.discard(id)
	return sel, nil
}

func (s *SelectionService) Cancel(actor auth.Actor, id string) error {
	if _, _, err := s.load(actor, id); err != nil {
		return err
	}
	s.discard(id)
	return nil
}

func (s *SelectionService) discard(id string) {
	// Best effort: both keys expire on their own anyway.
	_ = s.KV.Delete(metaKey(id), itemsKey(id))
}
