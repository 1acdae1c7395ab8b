package payments

import (
	"context"
	"sync"

	"gorm.io/gorm"

	"github.com/BenKrueger/DealerDesk/app/models"
)

// fakeRepository is an in-memory Repository with snapshot-rollback
// transactions. One mutex serializes whole transactions the way MySQL's
// primary-key constraint and row locks serialize the real ones, so the
// concurrency tests exercise the same claim semantics without a database.
type fakeRepository struct {
	mu sync.Mutex

	claims    map[string]models.IdempotencyRecord
	subs      map[string]models.Subscription
	settings  map[uint]models.UserSettings
	merchants map[string]models.MerchantAccount
	listings  []models.RetailerListing
	audits    []models.AuditLogEntry

	nextID uint

	failSaveSubscription error
	failUnlistRetailers  error
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		claims:    make(map[string]models.IdempotencyRecord),
		subs:      make(map[string]models.Subscription),
		settings:  make(map[uint]models.UserSettings),
		merchants: make(map[string]models.MerchantAccount),
	}
}

func subKey(provider, externalID string) string {
	return provider + "|" + externalID
}

type fakeSnapshot struct {
	claims    map[string]models.IdempotencyRecord
	subs      map[string]models.Subscription
	settings  map[uint]models.UserSettings
	merchants map[string]models.MerchantAccount
	listings  []models.RetailerListing
	audits    []models.AuditLogEntry
	nextID    uint
}

func (f *fakeRepository) snapshot() fakeSnapshot {
	s := fakeSnapshot{
		claims:    make(map[string]models.IdempotencyRecord, len(f.claims)),
		subs:      make(map[string]models.Subscription, len(f.subs)),
		settings:  make(map[uint]models.UserSettings, len(f.settings)),
		merchants: make(map[string]models.MerchantAccount, len(f.merchants)),
		listings:  append([]models.RetailerListing(nil), f.listings...),
		audits:    append([]models.AuditLogEntry(nil), f.audits...),
		nextID:    f.nextID,
	}
	for k, v := range f.claims {
		s.claims[k] = v
	}
	for k, v := range f.subs {
		s.subs[k] = v
	}
	for k, v := range f.settings {
		s.settings[k] = v
	}
	for k, v := range f.merchants {
		s.merchants[k] = v
	}
	return s
}

func (f *fakeRepository) restore(s fakeSnapshot) {
	f.claims = s.claims
	f.subs = s.subs
	f.settings = s.settings
	f.merchants = s.merchants
	f.listings = s.listings
	f.audits = s.audits
	f.nextID = s.nextID
}

func (f *fakeRepository) Transaction(ctx context.Context, fn func(tx Repository) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	snap := f.snapshot()
	if err := fn(f); err != nil {
		f.restore(snap)
		return err
	}
	return nil
}

func (f *fakeRepository) ClaimEvent(rec *models.IdempotencyRecord) (bool, error) {
	if _, exists := f.claims[rec.EventID]; exists {
		return false, nil
	}
	f.claims[rec.EventID] = *rec
	return true, nil
}

func (f *fakeRepository) GetSubscriptionForUpdate(provider, externalSubscriptionID string) (*models.Subscription, error) {
	sub, ok := f.subs[subKey(provider, externalSubscriptionID)]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := sub
	return &cp, nil
}

func (f *fakeRepository) CreateSubscription(sub *models.Subscription) error {
	f.nextID++
	sub.ID = f.nextID
	f.subs[subKey(sub.Provider, sub.ExternalSubscriptionID)] = *sub
	return nil
}

func (f *fakeRepository) SaveSubscription(sub *models.Subscription) error {
	if f.failSaveSubscription != nil {
		return f.failSaveSubscription
	}
	f.subs[subKey(sub.Provider, sub.ExternalSubscriptionID)] = *sub
	return nil
}

func (f *fakeRepository) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	if us, ok := f.settings[userID]; ok {
		cp := us
		return &cp, nil
	}
	f.nextID++
	us := models.UserSettings{ID: f.nextID, UserID: userID, Plan: "free"}
	f.settings[userID] = us
	cp := us
	return &cp, nil
}

func (f *fakeRepository) SaveUserSettings(us *models.UserSettings) error {
	f.settings[us.UserID] = *us
	return nil
}

func (f *fakeRepository) GetMerchantForUpdate(merchantID string) (*models.MerchantAccount, error) {
	m, ok := f.merchants[merchantID]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	cp := m
	return &cp, nil
}

func (f *fakeRepository) SaveMerchant(m *models.MerchantAccount) error {
	f.merchants[m.MerchantID] = *m
	return nil
}

func (f *fakeRepository) UnlistRetailers(merchantID string) (int64, error) {
	if f.failUnlistRetailers != nil {
		return 0, f.failUnlistRetailers
	}
	var count int64
	for i := range f.listings {
		if f.listings[i].MerchantID == merchantID && f.listings[i].Listed {
			f.listings[i].Listed = false
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) CreateAuditLogEntry(entry *models.AuditLogEntry) error {
	f.nextID++
	entry.ID = f.nextID
	f.audits = append(f.audits, *entry)
	return nil
}

// Test helpers below run outside transactions; callers must not hold f.mu.

func (f *fakeRepository) seedSubscription(sub models.Subscription) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[subKey(sub.Provider, sub.ExternalSubscriptionID)] = sub
}

func (f *fakeRepository) seedMerchant(m models.MerchantAccount, retailerIDs ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.merchants[m.MerchantID] = m
	for _, rid := range retailerIDs {
		f.listings = append(f.listings, models.RetailerListing{
			MerchantID: m.MerchantID,
			RetailerID: rid,
			Listed:     true,
		})
	}
}

func (f *fakeRepository) subscription(externalID string) (models.Subscription, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	sub, ok := f.subs[subKey(models.PaymentProviderStripe, externalID)]
	return sub, ok
}

func (f *fakeRepository) plan(userID uint) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.settings[userID].Plan
}

func (f *fakeRepository) claimCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.claims)
}

func (f *fakeRepository) auditCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.audits)
}

func (f *fakeRepository) auditCountForEvent(eventID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.audits {
		if a.EventID == eventID {
			n++
		}
	}
	return n
}

func (f *fakeRepository) listedCount(merchantID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.listings {
		if l.MerchantID == merchantID && l.Listed {
			n++
		}
	}
	return n
}
