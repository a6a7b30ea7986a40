package workflow

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/mmdatafocus/posting_backend/config"
	"github.com/mmdatafocus/posting_backend/corebank"
	"github.com/mmdatafocus/posting_backend/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// fakeReservationRepo enforces the (batch, sequence) uniqueness the database would.
type fakeReservationRepo struct {
	mu        sync.Mutex
	rows      map[models.ReservationKey]*models.TransactionReservation
	events    []models.PostingOutboxRecord
	finalized int
	insertErr error
}

func newFakeReservationRepo() *fakeReservationRepo {
	return &fakeReservationRepo{rows: map[models.ReservationKey]*models.TransactionReservation{}}
}

func (f *fakeReservationRepo) Insert(ctx context.Context, r *models.TransactionReservation) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.insertErr != nil {
		return f.insertErr
	}
	// decimal(15,2) columns reject values of 10^13 and above.
	limit := decimal.New(1, 13)
	if r.DebitAmount.Abs().GreaterThanOrEqual(limit) || r.CreditAmount.Abs().GreaterThanOrEqual(limit) {
		return errors.New("Error 1264: Out of range value for column")
	}
	k := r.Key()
	if _, ok := f.rows[k]; ok {
		return models.ErrDuplicateReservation
	}
	cp := *r
	cp.ID = len(f.rows) + 1
	cp.CreatedAt = time.Now().UTC()
	f.rows[k] = &cp
	r.ID = cp.ID
	return nil
}

func (f *fakeReservationRepo) Finalize(ctx context.Context, key models.ReservationKey, fin models.Finalization) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[key]
	if !ok || row.Status != models.ReservationStatusPending {
		return 0, nil
	}
	row.Status = fin.Status
	row.ErrorCode = fin.ErrorCode
	row.ErrorDescription = fin.ErrorDescription
	row.TraceFile = fin.TraceFile
	row.NetAmount = fin.NetAmount
	row.ChargeAmount = fin.ChargeAmount
	at := fin.ReconciledAt
	row.ReconciledAt = &at
	f.finalized++
	if fin.Event != nil {
		f.events = append(f.events, *fin.Event)
	}
	return 1, nil
}

func (f *fakeReservationRepo) Find(ctx context.Context, key models.ReservationKey) (*models.TransactionReservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	row, ok := f.rows[key]
	if !ok {
		return nil, models.ErrReservationNotFound
	}
	cp := *row
	return &cp, nil
}

func (f *fakeReservationRepo) ListPendingOlderThan(ctx context.Context, cutoff time.Time, limit int) ([]models.TransactionReservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []models.TransactionReservation
	for _, r := range f.rows {
		if r.Status == models.ReservationStatusPending && !r.CreatedAt.After(cutoff) {
			out = append(out, *r)
		}
	}
	return out, nil
}

func (f *fakeReservationRepo) row(t *testing.T, batch, seq string) models.TransactionReservation {
	key, err := models.NormalizeKey(batch, seq)
	if err != nil {
		t.Fatalf("NormalizeKey: %v", err)
	}
	r, err := f.Find(context.Background(), key)
	if err != nil {
		t.Fatalf("Find(%s): %v", key, err)
	}
	return *r
}

type fakeLookups struct {
	merchants    map[string]bool
	terminals    map[string]bool
	profiles     map[string]*models.PostingProfile
	entries      map[models.ControlVariant][]models.ControlEntry
	accountTypes map[string]models.AccountType
	rules        []models.ChargeRule
	err          error
}

func newFakeLookups() *fakeLookups {
	return &fakeLookups{
		merchants: map[string]bool{"M001|1234567890": true},
		terminals: map[string]bool{"M001|T0001": true, "M001|E0001": true},
		profiles: map[string]*models.PostingProfile{
			"P01": {Code: "P01", Description: "settlement"},
		},
		entries: map[models.ControlVariant][]models.ControlEntry{
			models.ControlVariantPOS: {
				{Position: 1, TypeCode: 110, Account: "9000000000000110", CostCenter: "000101"},
				{Position: 2, TypeCode: 210, Account: "9000000000000210", CostCenter: "000102"},
			},
			models.ControlVariantEcommerce: {
				{Position: 1, TypeCode: 110, Account: "9100000000000110", CostCenter: "000201"},
				{Position: 2, TypeCode: 210, Account: "9100000000000210", CostCenter: "000202"},
			},
		},
		accountTypes: map[string]models.AccountType{"1234567890": models.AccountTypeSavings},
	}
}

func (f *fakeLookups) MerchantExists(ctx context.Context, merchantCode, account string) (bool, error) {
	return f.merchants[merchantCode+"|"+account], f.err
}

func (f *fakeLookups) TerminalExists(ctx context.Context, merchantCode, terminalId string) (bool, error) {
	return f.terminals[merchantCode+"|"+terminalId], f.err
}

func (f *fakeLookups) FindProfile(ctx context.Context, code string) (*models.PostingProfile, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.profiles[code], nil
}

func (f *fakeLookups) ControlEntries(ctx context.Context, profile string, variant models.ControlVariant) ([]models.ControlEntry, error) {
	return f.entries[variant], f.err
}

func (f *fakeLookups) AutoBalance(ctx context.Context, profile string) (*models.AutoBalanceConfig, error) {
	if f.err != nil {
		return nil, f.err
	}
	p := f.profiles[profile]
	if p == nil {
		return nil, nil
	}
	return p.AutoBalanceConfig(), nil
}

func (f *fakeLookups) ClassifyAccount(ctx context.Context, account string) (models.AccountType, error) {
	if t, ok := f.accountTypes[account]; ok {
		return t, f.err
	}
	return models.AccountTypeOther, f.err
}

func (f *fakeLookups) ChargeRules(ctx context.Context, profile, merchantCode string) ([]models.ChargeRule, error) {
	return f.rules, f.err
}

type fakeCaller struct {
	calls int32
	mu    sync.Mutex
	last  []corebank.Parameter
	out   corebank.Outputs
	err   error
	panics bool
	block  bool
}

func (f *fakeCaller) Call(ctx context.Context, procedure, library string, in []corebank.Parameter) (corebank.Outputs, error) {
	atomic.AddInt32(&f.calls, 1)
	f.mu.Lock()
	f.last = in
	f.mu.Unlock()
	if f.panics {
		panic("core exploded")
	}
	if f.block {
		<-ctx.Done()
		return corebank.Outputs{}, &corebank.CallError{Kind: corebank.FailureTimeout, Err: ctx.Err()}
	}
	return f.out, f.err
}

func (f *fakeCaller) Calls() int { return int(atomic.LoadInt32(&f.calls)) }

func (f *fakeCaller) param(name string) (corebank.Parameter, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.last {
		if p.Name == name {
			return p, true
		}
	}
	return corebank.Parameter{}, false
}

func testConfig() config.PostingConfig {
	return config.PostingConfig{
		Profile:          "P01",
		ProcedureName:    "PSTMOV",
		Library:          "CORELIB",
		SuccessCode:      "00",
		CurrencyCode:     "340",
		TypeCodeCredit:   210,
		TypeCodeDebit:    110,
		CallTimeout:      time.Second,
		ReconcileTimeout: time.Second,
	}
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type testHarness struct {
	repo    *fakeReservationRepo
	lookups *fakeLookups
	caller  *fakeCaller
	cfg     config.PostingConfig
}

func newHarness() *testHarness {
	return &testHarness{
		repo:    newFakeReservationRepo(),
		lookups: newFakeLookups(),
		caller:  &fakeCaller{out: corebank.Outputs{ResponseCode: "00", ResponseMessage: "OK", TraceFile: "TRC0001"}},
		cfg:     testConfig(),
	}
}

func (h *testHarness) workflow() *PostingWorkflow {
	return NewPostingWorkflow(WorkflowDeps{
		Reservations: h.repo,
		Lookups:      h.lookups,
		Caller:       h.caller,
		Logger:       quietLogger(),
	}, h.cfg)
}

func debitRequest(batch, seq string) PostingRequest {
	return PostingRequest{
		BatchNumber:      batch,
		SequenceId:       seq,
		Account:          "1234567890",
		DebitAmount:      decimal.RequireFromString("100.00"),
		CreditAmount:     decimal.Zero,
		MerchantCode:     "M001",
		MerchantName:     "Corner Store",
		Terminal:         "T0001",
		Description:      "Settlement of card sales",
		AccountingNature: models.NatureDebit,
		CorrelationId:    "corr-1",
	}
}

func creditRequest(batch, seq string) PostingRequest {
	r := debitRequest(batch, seq)
	r.DebitAmount, r.CreditAmount = decimal.Zero, decimal.RequireFromString("100.00")
	r.AccountingNature = models.NatureCredit
	return r
}

var errLookupDown = errors.New("lookup database unavailable")
