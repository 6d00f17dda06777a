package store

import (
	"context"
	"sync"

	"github.com/markcoleman/Aggregator-the-agitator/internal/fdx/models"
	id "github.com/markcoleman/Aggregator-the-agitator/pkg/domain"
	"github.com/markcoleman/Aggregator-the-agitator/pkg/platform/sentinel"
)

// subjectData is everything the provider holds for one subject.
type subjectData struct {
	accounts     []*models.Account
	transactions map[id.AccountID][]*models.Transaction
	statements   map[id.AccountID][]*models.Statement
	contacts     map[id.AccountID]*models.Contact
	networks     []*models.PaymentNetwork
}

// InMemoryStore serves mock provider data from process memory. Writes only
// happen through Load before serving starts; a RWMutex still guards the map
// so tests can load data while handlers read.
type InMemoryStore struct {
	mu       sync.RWMutex
	subjects map[id.SubjectID]*subjectData
}

// NewInMemoryStore creates an empty provider store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		subjects: make(map[id.SubjectID]*subjectData),
	}
}

// LoadAccount registers an account for a subject.
func (s *InMemoryStore) LoadAccount(subjectID id.SubjectID, account *models.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.subject(subjectID)
	data.accounts = append(data.accounts, account)
}

// LoadTransactions registers transactions for a subject's account.
func (s *InMemoryStore) LoadTransactions(subjectID id.SubjectID, accountID id.AccountID, txns ...*models.Transaction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.subject(subjectID)
	data.transactions[accountID] = append(data.transactions[accountID], txns...)
}

// LoadStatements registers statements for a subject's account.
func (s *InMemoryStore) LoadStatements(subjectID id.SubjectID, accountID id.AccountID, statements ...*models.Statement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.subject(subjectID)
	data.statements[accountID] = append(data.statements[accountID], statements...)
}

// LoadContact registers the holder contact for a subject's account.
func (s *InMemoryStore) LoadContact(subjectID id.SubjectID, accountID id.AccountID, contact *models.Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.subject(subjectID)
	data.contacts[accountID] = contact
}

// LoadPaymentNetwork registers a payment network entry for a subject.
func (s *InMemoryStore) LoadPaymentNetwork(subjectID id.SubjectID, network *models.PaymentNetwork) {
	s.mu.Lock()
	defer s.mu.Unlock()
	data := s.subject(subjectID)
	data.networks = append(data.networks, network)
}

// subject returns the subject's bucket, creating it when absent.
// Callers must hold the write lock.
func (s *InMemoryStore) subject(subjectID id.SubjectID) *subjectData {
	data, ok := s.subjects[subjectID]
	if !ok {
		data = &subjectData{
			transactions: make(map[id.AccountID][]*models.Transaction),
			statements:   make(map[id.AccountID][]*models.Statement),
			contacts:     make(map[id.AccountID]*models.Contact),
		}
		s.subjects[subjectID] = data
	}
	return data
}

// AccountIDsBySubject returns the IDs of every account held for the subject.
func (s *InMemoryStore) AccountIDsBySubject(_ context.Context, subjectID id.SubjectID) ([]id.AccountID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.subjects[subjectID]
	if !ok {
		return []id.AccountID{}, nil
	}
	ids := make([]id.AccountID, 0, len(data.accounts))
	for _, acct := range data.accounts {
		ids = append(ids, id.AccountID(acct.AccountID))
	}
	return ids, nil
}

// AccountsBySubject returns copies of every account held for the subject.
func (s *InMemoryStore) AccountsBySubject(_ context.Context, subjectID id.SubjectID) ([]*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.subjects[subjectID]
	if !ok {
		return []*models.Account{}, nil
	}
	out := make([]*models.Account, 0, len(data.accounts))
	for _, acct := range data.accounts {
		cp := *acct
		out = append(out, &cp)
	}
	return out, nil
}

// AccountByID returns the subject's account, or sentinel.ErrNotFound.
func (s *InMemoryStore) AccountByID(_ context.Context, subjectID id.SubjectID, accountID id.AccountID) (*models.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.subjects[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	for _, acct := range data.accounts {
		if acct.AccountID == accountID.String() {
			cp := *acct
			return &cp, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// TransactionsByAccount returns the account's transactions, newest first as
// loaded. The account must be held by the subject.
func (s *InMemoryStore) TransactionsByAccount(_ context.Context, subjectID id.SubjectID, accountID id.AccountID) ([]*models.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.accountData(subjectID, accountID)
	if err != nil {
		return nil, err
	}
	txns := data.transactions[accountID]
	out := make([]*models.Transaction, 0, len(txns))
	for _, txn := range txns {
		cp := *txn
		out = append(out, &cp)
	}
	return out, nil
}

// StatementsByAccount returns the account's statements.
func (s *InMemoryStore) StatementsByAccount(_ context.Context, subjectID id.SubjectID, accountID id.AccountID) ([]*models.Statement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.accountData(subjectID, accountID)
	if err != nil {
		return nil, err
	}
	statements := data.statements[accountID]
	out := make([]*models.Statement, 0, len(statements))
	for _, st := range statements {
		cp := *st
		out = append(out, &cp)
	}
	return out, nil
}

// ContactByAccount returns the holder contact for the subject's account.
func (s *InMemoryStore) ContactByAccount(_ context.Context, subjectID id.SubjectID, accountID id.AccountID) (*models.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := s.accountData(subjectID, accountID)
	if err != nil {
		return nil, err
	}
	contact, ok := data.contacts[accountID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	cp := *contact
	if contact.Address != nil {
		addr := *contact.Address
		cp.Address = &addr
	}
	return &cp, nil
}

// PaymentNetworksBySubject returns the subject's payment network entries.
func (s *InMemoryStore) PaymentNetworksBySubject(_ context.Context, subjectID id.SubjectID) ([]*models.PaymentNetwork, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, ok := s.subjects[subjectID]
	if !ok {
		return []*models.PaymentNetwork{}, nil
	}
	out := make([]*models.PaymentNetwork, 0, len(data.networks))
	for _, network := range data.networks {
		cp := *network
		out = append(out, &cp)
	}
	return out, nil
}

// accountData resolves the subject's bucket and verifies the subject holds
// the account. Callers must hold at least the read lock.
func (s *InMemoryStore) accountData(subjectID id.SubjectID, accountID id.AccountID) (*subjectData, error) {
	data, ok := s.subjects[subjectID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	for _, acct := range data.accounts {
		if acct.AccountID == accountID.String() {
			return data, nil
		}
	}
	return nil, sentinel.ErrNotFound
}
