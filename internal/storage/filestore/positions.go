package filestore

import (
	"context"
	"strings"
	"time"

	"github.com/silverquant/tierstore/internal/storage"
)

// heldDoc is held_days.json: code -> days, plus reserved "_"-prefixed
// marker keys whose values are strings.
type heldDoc map[string]any

func (d heldDoc) days(code string) (int, bool) {
	v, ok := d[code]
	if !ok {
		return 0, false
	}
	f, ok := v.(float64) // json numbers decode as float64
	if !ok {
		return 0, false
	}
	return int(f), true
}

// GetHeldDays returns the holding days for a code, or ok=false when the
// code has no record.
func (s *Store) GetHeldDays(_ context.Context, code, _ string) (int, bool, error) {
	path := s.path(fileHeldDays)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := heldDoc{}
	if err := readDoc(path, &doc); err != nil {
		return 0, false, err
	}
	days, ok := doc.days(code)
	return days, ok, nil
}

// UpdateHeldDays overwrites the holding days for a code.
func (s *Store) UpdateHeldDays(_ context.Context, code, _ string, days int) error {
	if days < 0 {
		return storage.Invalidf("held days %d must be >= 0", days)
	}
	path := s.path(fileHeldDays)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := heldDoc{}
	if err := readDoc(path, &doc); err != nil {
		return err
	}
	doc[code] = days
	return writeDoc(path, doc)
}

// DeleteHeldDays removes a code's record. Missing records are not an error.
func (s *Store) DeleteHeldDays(_ context.Context, code, _ string) error {
	path := s.path(fileHeldDays)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := heldDoc{}
	if err := readDoc(path, &doc); err != nil {
		return err
	}
	if _, ok := doc[code]; !ok {
		return nil
	}
	delete(doc, code)
	return writeDoc(path, doc)
}

// BatchNewHeld sets every code to zero holding days, overwriting existing
// entries.
func (s *Store) BatchNewHeld(_ context.Context, _ string, codes []string) error {
	path := s.path(fileHeldDays)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := heldDoc{}
	if err := readDoc(path, &doc); err != nil {
		return err
	}
	for _, code := range codes {
		doc[code] = 0
	}
	return writeDoc(path, doc)
}

// AllHeldInc increments every position's days once per calendar day, using
// the _inc_date marker inside the document. Holding the document mutex for
// the whole read-modify-write makes the check and the increment atomic.
func (s *Store) AllHeldInc(_ context.Context, _ string) (bool, error) {
	path := s.path(fileHeldDays)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := heldDoc{}
	if err := readDoc(path, &doc); err != nil {
		return false, err
	}

	today := time.Now().Format(storage.DateLayout)
	if last, ok := doc[incDateKey].(string); ok && last == today {
		return false, nil
	}

	incremented := 0
	for code := range doc {
		if strings.HasPrefix(code, "_") {
			continue
		}
		if days, ok := doc.days(code); ok {
			doc[code] = days + 1
			incremented++
		}
	}
	if incremented == 0 {
		return false, nil
	}

	doc[incDateKey] = today
	if err := writeDoc(path, doc); err != nil {
		return false, err
	}
	s.log.Debug().Int("positions", incremented).Str("date", today).Msg("held days incremented")
	return true, nil
}

// GetMaxPrice returns the high mark for a code, or ok=false when untracked.
func (s *Store) GetMaxPrice(ctx context.Context, code, accountID string) (float64, bool, error) {
	return s.getPrice(fileMaxPrices, code)
}

// UpdateMaxPrice overwrites the high mark, rounded to 3 decimal places.
func (s *Store) UpdateMaxPrice(ctx context.Context, code, accountID string, price float64) error {
	return s.updatePrice(fileMaxPrices, code, price)
}

// GetMinPrice returns the low mark for a code, or ok=false when untracked.
func (s *Store) GetMinPrice(ctx context.Context, code, accountID string) (float64, bool, error) {
	return s.getPrice(fileMinPrices, code)
}

// UpdateMinPrice overwrites the low mark, rounded to 3 decimal places.
func (s *Store) UpdateMinPrice(ctx context.Context, code, accountID string, price float64) error {
	return s.updatePrice(fileMinPrices, code, price)
}

func (s *Store) getPrice(file, code string) (float64, bool, error) {
	path := s.path(file)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]float64{}
	if err := readDoc(path, &doc); err != nil {
		return 0, false, err
	}
	price, ok := doc[code]
	return price, ok, nil
}

func (s *Store) updatePrice(file, code string, price float64) error {
	if price <= 0 {
		return storage.Invalidf("price %v must be > 0", price)
	}
	path := s.path(file)
	lock := s.lockFor(path)
	lock.Lock()
	defer lock.Unlock()

	doc := map[string]float64{}
	if err := readDoc(path, &doc); err != nil {
		return err
	}
	doc[code] = storage.RoundPrice(price)
	return writeDoc(path, doc)
}
