package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/filestorage"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/carebridge/carebridge/internal/pkg/pverify"
)

// In-memory doubles for the repository interfaces declared in services.go.

type fakeUsers struct {
	users  map[int64]*models.User
	nextID int64
}

func newFakeUsers(users ...*models.User) *fakeUsers {
	f := &fakeUsers{users: map[int64]*models.User{}, nextID: 100}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, user *models.User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return apperrors.ErrEmailAlreadyExists
		}
	}
	f.nextID++
	user.ID = f.nextID
	f.users[user.ID] = user
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id int64) (*models.User, error) {
	if u, ok := f.users[id]; ok {
		return u, nil
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, apperrors.ErrUserNotFound
}

func (f *fakeUsers) EmailExists(ctx context.Context, email string) (bool, error) {
	_, err := f.GetByEmail(ctx, email)
	return err == nil, nil
}

func (f *fakeUsers) UpdateLastLogin(_ context.Context, userID int64) error {
	now := time.Now()
	f.users[userID].LastLoginAt = &now
	return nil
}

type fakeTokens struct {
	tokens map[string]*models.RefreshToken
}

func newFakeTokens() *fakeTokens {
	return &fakeTokens{tokens: map[string]*models.RefreshToken{}}
}

func (f *fakeTokens) CreateToken(_ context.Context, token string, userID int64, expiry time.Time) error {
	f.tokens[token] = &models.RefreshToken{Token: token, UserID: userID, ExpiryDate: expiry}
	return nil
}

func (f *fakeTokens) GetToken(_ context.Context, token string) (*models.RefreshToken, error) {
	if t, ok := f.tokens[token]; ok {
		return t, nil
	}
	return nil, apperrors.ErrTokenNotFound
}

func (f *fakeTokens) RevokeToken(_ context.Context, token string) error {
	t, ok := f.tokens[token]
	if !ok {
		return apperrors.ErrTokenNotFound
	}
	if t.IsRevoked {
		return apperrors.ErrTokenRevoked
	}
	t.IsRevoked = true
	return nil
}

func (f *fakeTokens) RotateToken(ctx context.Context, oldToken, newToken string, userID int64, expiry time.Time) error {
	if err := f.RevokeToken(ctx, oldToken); err != nil {
		return err
	}
	return f.CreateToken(ctx, newToken, userID, expiry)
}

func (f *fakeTokens) CleanupExpiredTokens(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for k, t := range f.tokens {
		if t.ExpiryDate.Before(now) {
			delete(f.tokens, k)
			n++
		}
	}
	return n, nil
}

type fakeProducts struct {
	products map[int64]*models.Product
}

func (f *fakeProducts) Create(_ context.Context, p *models.Product) error {
	if f.products == nil {
		f.products = map[int64]*models.Product{}
	}
	p.ID = int64(len(f.products) + 1)
	f.products[p.ID] = p
	return nil
}

func (f *fakeProducts) GetByID(_ context.Context, id int64) (*models.Product, error) {
	if p, ok := f.products[id]; ok {
		return p, nil
	}
	return nil, apperrors.ErrProductNotFound
}

func (f *fakeProducts) ListActive(_ context.Context, practitionerID *int64) ([]*models.Product, error) {
	var out []*models.Product
	for _, p := range f.products {
		if p.IsActive && (practitionerID == nil || *practitionerID == p.PractitionerID) {
			out = append(out, p)
		}
	}
	return out, nil
}

type fakeAvailability struct {
	windows []*models.Availability
}

func (f *fakeAvailability) Create(_ context.Context, a *models.Availability) error {
	a.ID = int64(len(f.windows) + 1)
	f.windows = append(f.windows, a)
	return nil
}

func (f *fakeAvailability) ListOverlapping(_ context.Context, practitionerID int64, start, end time.Time) ([]*models.Availability, error) {
	var out []*models.Availability
	for _, w := range f.windows {
		if w.PractitionerID == practitionerID && helpers.Overlaps(w.StartsAt, w.EndsAt, start, end) {
			out = append(out, w)
		}
	}
	return out, nil
}

type fakeAppointments struct {
	appts        map[int64]*models.Appointment
	reminderSent map[int64]time.Time
}

func newFakeAppointments() *fakeAppointments {
	return &fakeAppointments{appts: map[int64]*models.Appointment{}, reminderSent: map[int64]time.Time{}}
}

func (f *fakeAppointments) Create(_ context.Context, a *models.Appointment) error {
	a.ID = int64(len(f.appts) + 1)
	f.appts[a.ID] = a
	return nil
}

func (f *fakeAppointments) GetByID(_ context.Context, id int64) (*models.Appointment, error) {
	if a, ok := f.appts[id]; ok {
		cp := *a
		return &cp, nil
	}
	return nil, apperrors.ErrAppointmentNotFound
}

func (f *fakeAppointments) HasOverlap(_ context.Context, practitionerID, memberID int64, start, end time.Time) (bool, error) {
	for _, a := range f.appts {
		if a.State != models.AppointmentScheduled {
			continue
		}
		if (a.PractitionerID == practitionerID || a.MemberID == memberID) &&
			helpers.Overlaps(a.ScheduledStart, a.ScheduledEnd, start, end) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeAppointments) Transition(_ context.Context, a *models.Appointment) error {
	cur, ok := f.appts[a.ID]
	if !ok || cur.State != models.AppointmentScheduled {
		return apperrors.ErrInvalidStateTransition
	}
	cp := *a
	f.appts[a.ID] = &cp
	return nil
}

func (f *fakeAppointments) list(match func(*models.Appointment) bool, offset, limit uint64) ([]*models.Appointment, int64, error) {
	var all []*models.Appointment
	for _, a := range f.appts {
		if match(a) {
			all = append(all, a)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ScheduledStart.Before(all[j].ScheduledStart) })
	total := int64(len(all))
	if offset >= uint64(len(all)) {
		return nil, total, nil
	}
	end := min(offset+limit, uint64(len(all)))
	return all[offset:end], total, nil
}

func (f *fakeAppointments) ListByMember(_ context.Context, memberID int64, offset, limit uint64) ([]*models.Appointment, int64, error) {
	return f.list(func(a *models.Appointment) bool { return a.MemberID == memberID }, offset, limit)
}

func (f *fakeAppointments) ListByPractitioner(_ context.Context, practitionerID int64, offset, limit uint64) ([]*models.Appointment, int64, error) {
	return f.list(func(a *models.Appointment) bool { return a.PractitionerID == practitionerID }, offset, limit)
}

func (f *fakeAppointments) ListDueReminders(_ context.Context, from, until time.Time) ([]*models.Appointment, error) {
	var out []*models.Appointment
	for _, a := range f.appts {
		if _, sent := f.reminderSent[a.ID]; sent {
			continue
		}
		if a.State == models.AppointmentScheduled && !a.ScheduledStart.Before(from) && a.ScheduledStart.Before(until) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (f *fakeAppointments) MarkReminderSent(_ context.Context, id int64, at time.Time) error {
	f.reminderSent[id] = at
	return nil
}

type fakeRisk struct {
	flags  map[string]*models.RiskFlag
	rows   []*models.MemberRiskFlag
	nextID int64
}

func newFakeRisk() *fakeRisk {
	return &fakeRisk{flags: map[string]*models.RiskFlag{
		models.RiskFlagHighBMI:    {ID: 1, Name: models.RiskFlagHighBMI, Severity: models.RiskHigh, IsChronic: true},
		models.RiskFlagOverweight: {ID: 2, Name: models.RiskFlagOverweight, Severity: models.RiskMedium},
		"Smoker":                  {ID: 3, Name: "Smoker", Severity: models.RiskHigh},
	}}
}

func (f *fakeRisk) GetFlagByName(_ context.Context, name string) (*models.RiskFlag, error) {
	if fl, ok := f.flags[name]; ok {
		return fl, nil
	}
	return nil, apperrors.ErrRiskFlagNotFound
}

func (f *fakeRisk) GetActive(_ context.Context, userID, flagID int64) (*models.MemberRiskFlag, error) {
	for _, r := range f.rows {
		if r.UserID == userID && r.RiskFlagID == flagID && r.EndDate == nil {
			return r, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("no active risk flag")
}

func (f *fakeRisk) Insert(_ context.Context, m *models.MemberRiskFlag) error {
	f.nextID++
	m.ID = f.nextID
	f.rows = append(f.rows, m)
	return nil
}

func (f *fakeRisk) find(id int64) *models.MemberRiskFlag {
	for _, r := range f.rows {
		if r.ID == id {
			return r
		}
	}
	return nil
}

func (f *fakeRisk) UpdateValue(_ context.Context, id int64, value *string) error {
	f.find(id).Value = value
	return nil
}

func (f *fakeRisk) End(_ context.Context, id int64, endDate time.Time) error {
	f.find(id).EndDate = &endDate
	return nil
}

func (f *fakeRisk) ListActive(_ context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	var out []*models.MemberRiskFlag
	for _, r := range f.rows {
		if r.UserID == userID && r.EndDate == nil {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRisk) ListHistory(_ context.Context, userID int64) ([]*models.MemberRiskFlag, error) {
	var out []*models.MemberRiskFlag
	for _, r := range f.rows {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

// fakeWallets implements walletStore, depositStore and reimbursementGetter
type fakeWallets struct {
	wallets    map[int64]*models.Wallet
	categories map[int64]*models.WalletCategory
	requests   map[int64]*models.ReimbursementRequest
}

func newFakeWallets() *fakeWallets {
	return &fakeWallets{
		wallets:    map[int64]*models.Wallet{},
		categories: map[int64]*models.WalletCategory{},
		requests:   map[int64]*models.ReimbursementRequest{},
	}
}

func (f *fakeWallets) Create(_ context.Context, w *models.Wallet) error {
	for _, existing := range f.wallets {
		if existing.UserID == w.UserID {
			return apperrors.ErrWalletAlreadyExists
		}
	}
	w.ID = int64(len(f.wallets) + 1)
	f.wallets[w.ID] = w
	return nil
}

func (f *fakeWallets) GetByID(_ context.Context, id int64) (*models.Wallet, error) {
	if w, ok := f.wallets[id]; ok {
		cp := *w
		return &cp, nil
	}
	return nil, apperrors.ErrWalletNotFound
}

func (f *fakeWallets) UpdateState(_ context.Context, id int64, from, to models.WalletState) error {
	w, ok := f.wallets[id]
	if !ok || w.State != from {
		return apperrors.ErrInvalidStateTransition
	}
	w.State = to
	return nil
}

func (f *fakeWallets) CreateCategory(_ context.Context, c *models.WalletCategory) error {
	c.ID = int64(len(f.categories) + 1)
	f.categories[c.ID] = c
	return nil
}

func (f *fakeWallets) GetCategory(_ context.Context, id int64) (*models.WalletCategory, error) {
	if c, ok := f.categories[id]; ok {
		return c, nil
	}
	return nil, apperrors.ErrCategoryNotFound
}

func (f *fakeWallets) ListCategories(_ context.Context, walletID int64) ([]*models.WalletCategory, error) {
	var out []*models.WalletCategory
	for id := int64(1); id <= int64(len(f.categories)); id++ {
		if c := f.categories[id]; c != nil && c.WalletID == walletID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (f *fakeWallets) totals(categoryID int64) models.CategoryTotals {
	t := models.CategoryTotals{CategoryID: categoryID}
	for _, r := range f.requests {
		if r.CategoryID != categoryID {
			continue
		}
		switch r.State {
		case models.ReimbursementApproved, models.ReimbursementReimbursed:
			t.SpentCents += r.AmountCents
		case models.ReimbursementNew, models.ReimbursementPending:
			t.PendingCents += r.AmountCents
		}
	}
	return t
}

func (f *fakeWallets) CategoryTotals(_ context.Context, walletID int64) ([]models.CategoryTotals, error) {
	var out []models.CategoryTotals
	for _, c := range f.categories {
		if c.WalletID == walletID {
			out = append(out, f.totals(c.ID))
		}
	}
	return out, nil
}

func (f *fakeWallets) CreateReimbursement(_ context.Context, req *models.ReimbursementRequest) error {
	req.ID = int64(len(f.requests) + 1)
	f.requests[req.ID] = req
	return nil
}

func (f *fakeWallets) GetReimbursement(_ context.Context, id int64) (*models.ReimbursementRequest, error) {
	if r, ok := f.requests[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, apperrors.ErrReimbursementNotFound
}

func (f *fakeWallets) Approve(_ context.Context, id, decidedBy int64, at time.Time) error {
	r, ok := f.requests[id]
	if !ok {
		return apperrors.ErrReimbursementNotFound
	}
	if !r.State.CanTransitionTo(models.ReimbursementApproved) {
		return apperrors.ErrInvalidStateTransition
	}
	if f.totals(r.CategoryID).SpentCents+r.AmountCents > f.categories[r.CategoryID].LimitCents {
		return apperrors.ErrInsufficientBalance
	}
	r.State, r.DecidedAt, r.DecidedBy = models.ReimbursementApproved, &at, &decidedBy
	return nil
}

func (f *fakeWallets) Deny(_ context.Context, id int64, from models.ReimbursementState, decidedBy int64, reason string, at time.Time) error {
	r, ok := f.requests[id]
	if !ok || r.State != from {
		return apperrors.ErrInvalidStateTransition
	}
	r.State, r.DenialReason, r.DecidedAt, r.DecidedBy = models.ReimbursementDenied, &reason, &at, &decidedBy
	return nil
}

func (f *fakeWallets) ClaimDepositCandidates(_ context.Context, at time.Time) ([]models.DepositCandidate, error) {
	var out []models.DepositCandidate
	for id := int64(1); id <= int64(len(f.requests)); id++ {
		r := f.requests[id]
		if r == nil || r.State != models.ReimbursementApproved || r.ExportedAt != nil {
			continue
		}
		stamp := at
		r.ExportedAt = &stamp
		out = append(out, models.DepositCandidate{
			RequestID:     r.ID,
			EmployeeID:    f.wallets[r.WalletID].EmployeeID,
			CategoryLabel: f.categories[r.CategoryID].Label,
			AmountCents:   r.AmountCents,
			DecidedAt:     *r.DecidedAt,
		})
	}
	return out, nil
}

func (f *fakeWallets) ReleaseExported(_ context.Context, ids []int64, at time.Time) error {
	for _, id := range ids {
		if r := f.requests[id]; r != nil && r.State == models.ReimbursementApproved && r.ExportedAt != nil && r.ExportedAt.Equal(at) {
			r.ExportedAt = nil
		}
	}
	return nil
}

func (f *fakeWallets) MarkReimbursed(_ context.Context, id int64) error {
	r, ok := f.requests[id]
	if !ok || r.State != models.ReimbursementApproved {
		return apperrors.ErrInvalidStateTransition
	}
	r.State = models.ReimbursementReimbursed
	return nil
}

func (f *fakeWallets) ClearExported(_ context.Context, id int64) error {
	if r, ok := f.requests[id]; ok && r.State == models.ReimbursementApproved {
		r.ExportedAt = nil
	}
	return nil
}

type fakePayers struct {
	payers []*models.Payer
}

func newFakePayers() *fakePayers {
	return &fakePayers{payers: []*models.Payer{
		{ID: 1, Name: "Express Scripts", Code: "esi", ReceiverID: "ESI", EligibilityPayerCode: "00192"},
		{ID: 2, Name: "UnitedHealthcare", Code: "uhc", ReceiverID: "UHC", EligibilityPayerCode: "87726"},
	}}
}

func (f *fakePayers) GetByID(_ context.Context, id int64) (*models.Payer, error) {
	for _, p := range f.payers {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, apperrors.ErrPayerNotFound
}

func (f *fakePayers) GetByCode(_ context.Context, code string) (*models.Payer, error) {
	for _, p := range f.payers {
		if p.Code == code {
			return p, nil
		}
	}
	return nil, apperrors.ErrPayerNotFound
}

func (f *fakePayers) List(_ context.Context) ([]*models.Payer, error) {
	return f.payers, nil
}

type fakePlans struct {
	plans []*models.MemberHealthPlan
}

func (f *fakePlans) Create(_ context.Context, p *models.MemberHealthPlan) error {
	for _, existing := range f.plans {
		if existing.MemberID == p.MemberID && existing.ActiveOn(p.PlanStart) {
			return apperrors.ErrHealthPlanAlreadyExists
		}
	}
	p.ID = int64(len(f.plans) + 1)
	f.plans = append(f.plans, p)
	return nil
}

func (f *fakePlans) FindActive(_ context.Context, memberID int64, day time.Time) (*models.MemberHealthPlan, error) {
	for _, p := range f.plans {
		if p.MemberID == memberID && p.ActiveOn(day) {
			return p, nil
		}
	}
	return nil, apperrors.ErrNoMemberHealthPlan
}

type fakeTreatments struct {
	items map[int64]*models.TreatmentProcedure
}

func (f *fakeTreatments) Create(_ context.Context, t *models.TreatmentProcedure) error {
	if f.items == nil {
		f.items = map[int64]*models.TreatmentProcedure{}
	}
	t.ID = int64(len(f.items) + 1)
	f.items[t.ID] = t
	return nil
}

func (f *fakeTreatments) GetByID(_ context.Context, id int64) (*models.TreatmentProcedure, error) {
	if t, ok := f.items[id]; ok {
		return t, nil
	}
	return nil, apperrors.ErrTreatmentNotFound
}

// fakeAccumulation keeps mappings and reports and derives details from the
// treatment and plan doubles the way the SQL join does
type fakeAccumulation struct {
	mappings   []*models.AccumulationTreatmentMapping
	reports    map[int64]*models.PayerAccumulationReport
	treatments *fakeTreatments
	plans      *fakePlans
}

func newFakeAccumulation(treatments *fakeTreatments, plans *fakePlans) *fakeAccumulation {
	return &fakeAccumulation{reports: map[int64]*models.PayerAccumulationReport{}, treatments: treatments, plans: plans}
}

func (f *fakeAccumulation) CreateMapping(_ context.Context, m *models.AccumulationTreatmentMapping) error {
	for _, existing := range f.mappings {
		if existing.TreatmentProcedureID == m.TreatmentProcedureID && existing.IsRefund == m.IsRefund {
			return apperrors.ErrTreatmentAlreadyMapped
		}
	}
	m.ID = int64(len(f.mappings) + 1)
	f.mappings = append(f.mappings, m)
	return nil
}

func (f *fakeAccumulation) GetMapping(_ context.Context, procedureID int64, isRefund bool) (*models.AccumulationTreatmentMapping, error) {
	for _, m := range f.mappings {
		if m.TreatmentProcedureID == procedureID && m.IsRefund == isRefund {
			return m, nil
		}
	}
	return nil, apperrors.NewResourceNotFoundError("accumulation mapping not found")
}

func (f *fakeAccumulation) detail(m *models.AccumulationTreatmentMapping) *models.AccumulationDetail {
	t := f.treatments.items[m.TreatmentProcedureID]
	d := &models.AccumulationDetail{Mapping: *m, DateOfService: t.ServiceDate(), ProcedureName: t.ProcedureName}
	if p, err := f.plans.FindActive(context.Background(), t.MemberID, t.ServiceDate()); err == nil {
		d.SubscriberID, d.FirstName, d.LastName, d.DateOfBirth = p.SubscriberID, p.SubscriberFirstName, p.SubscriberLastName, p.SubscriberDOB
	}
	return d
}

func (f *fakeAccumulation) ListWaitingDetails(_ context.Context, payerID int64) ([]*models.AccumulationDetail, error) {
	var out []*models.AccumulationDetail
	for _, m := range f.mappings {
		if m.PayerID == payerID && m.Status == models.AccumulationWaiting {
			out = append(out, f.detail(m))
		}
	}
	return out, nil
}

func (f *fakeAccumulation) ListReportDetails(_ context.Context, reportID int64) ([]*models.AccumulationDetail, error) {
	var out []*models.AccumulationDetail
	for _, m := range f.mappings {
		if m.ReportID != nil && *m.ReportID == reportID {
			out = append(out, f.detail(m))
		}
	}
	return out, nil
}

func (f *fakeAccumulation) byID(id int64) *models.AccumulationTreatmentMapping {
	return f.mappings[id-1]
}

func (f *fakeAccumulation) MarkRowErrors(_ context.Context, ids []int64, reason string) error {
	for _, id := range ids {
		m := f.byID(id)
		m.Status, m.RowErrorReason = models.AccumulationRowError, &reason
	}
	return nil
}

func (f *fakeAccumulation) CreateReport(_ context.Context, rep *models.PayerAccumulationReport, mappingIDs []int64) error {
	rep.ID = int64(len(f.reports) + 1)
	f.reports[rep.ID] = rep
	for _, id := range mappingIDs {
		m := f.byID(id)
		if m.Status != models.AccumulationWaiting {
			return apperrors.NewConflictError("mapping changed")
		}
		reportID := rep.ID
		m.Status, m.ReportID = models.AccumulationProcessed, &reportID
	}
	return nil
}

func (f *fakeAccumulation) GetReport(_ context.Context, id int64) (*models.PayerAccumulationReport, error) {
	if r, ok := f.reports[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, apperrors.ErrReportNotFound
}

func (f *fakeAccumulation) UpdateReportFile(_ context.Context, id int64, filename, storagePath string) error {
	f.reports[id].Filename, f.reports[id].StoragePath = filename, storagePath
	return nil
}

func (f *fakeAccumulation) SubmitReport(_ context.Context, id int64, at time.Time) error {
	r, ok := f.reports[id]
	if !ok || r.Status != models.ReportNew {
		return apperrors.ErrReportAlreadySubmitted
	}
	r.Status, r.SubmittedAt = models.ReportSubmitted, &at
	for _, m := range f.mappings {
		if m.ReportID != nil && *m.ReportID == id && m.Status == models.AccumulationProcessed {
			m.Status = models.AccumulationSubmitted
		}
	}
	return nil
}

func (f *fakeAccumulation) FindByTransmissionIDs(_ context.Context, payerID int64, ids []string) (map[string]*models.AccumulationTreatmentMapping, error) {
	out := map[string]*models.AccumulationTreatmentMapping{}
	for _, id := range ids {
		for _, m := range f.mappings {
			if m.PayerID == payerID && m.TransmissionID == id {
				out[id] = m
			}
		}
	}
	return out, nil
}

func (f *fakeAccumulation) ResolveMappings(_ context.Context, resolutions []models.MappingResolution) ([]bool, error) {
	applied := make([]bool, len(resolutions))
	for i, res := range resolutions {
		m := f.byID(res.MappingID)
		if m.Status != models.AccumulationSubmitted {
			continue
		}
		m.Status, m.RowErrorReason = res.Status, res.Reason
		applied[i] = true
	}
	return applied, nil
}

type fakeEdi struct {
	transfers []*models.EdiTransfer
	err       error
}

func (f *fakeEdi) CreateTransfer(_ context.Context, t *models.EdiTransfer) error {
	if f.err != nil {
		return f.err
	}
	t.ID = int64(len(f.transfers) + 1)
	f.transfers = append(f.transfers, t)
	return nil
}

type sentEmail struct {
	to       string
	kind     string
	approved bool
}

type fakeEmail struct {
	mu   sync.Mutex
	sent []sentEmail
	fail bool
}

func (f *fakeEmail) SendAppointmentReminder(toEmail, _ string, _ time.Time, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp down")
	}
	f.sent = append(f.sent, sentEmail{to: toEmail, kind: "reminder"})
	return nil
}

func (f *fakeEmail) SendReimbursementDecision(toEmail, _ string, _ int64, approved bool, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail {
		return fmt.Errorf("smtp down")
	}
	f.sent = append(f.sent, sentEmail{to: toEmail, kind: "decision", approved: approved})
	return nil
}

type fakeCache struct {
	data map[string][]byte
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: map[string][]byte{}}
}

func (f *fakeCache) GetJSON(_ context.Context, key string, dest any) (bool, error) {
	b, ok := f.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dest)
}

func (f *fakeCache) SetJSON(_ context.Context, key string, value any, _ time.Duration) error {
	b, err := json.Marshal(value)
	if err != nil {
		return err
	}
	f.data[key] = b
	return nil
}

func (f *fakeCache) Delete(_ context.Context, key string) error {
	delete(f.data, key)
	return nil
}

type fakeStorage struct {
	files map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{files: map[string][]byte{}}
}

func (f *fakeStorage) Save(subPath, filename string, data []byte) (string, error) {
	p := subPath + "/" + filename
	if _, ok := f.files[p]; ok {
		return "", fmt.Errorf("%w: %s", filestorage.ErrFileExists, p)
	}
	f.files[p] = data
	return p, nil
}

func (f *fakeStorage) Read(relPath string) ([]byte, error) {
	if b, ok := f.files[relPath]; ok {
		return b, nil
	}
	return nil, fmt.Errorf("no file %s", relPath)
}

func (f *fakeStorage) Delete(relPath string) error {
	delete(f.files, relPath)
	return nil
}

func (f *fakeStorage) GetFullPath(relPath string) (string, error) {
	return "/tmp/" + relPath, nil
}

type fakeEligibilityClient struct {
	calls   int
	summary *pverify.Summary
	err     error
	last    pverify.Request
}

func (f *fakeEligibilityClient) EligibilitySummary(_ context.Context, req pverify.Request) (*pverify.Summary, error) {
	f.calls++
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	cp := *f.summary
	return &cp, nil
}
