package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/edifile"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ediNow = time.Date(2026, 10, 18, 6, 0, 0, 0, time.UTC)

type ediFixture struct {
	svc     *ediServiceImpl
	wallets *fakeWallets
	edi     *fakeEdi
	storage *fakeStorage
}

func newEdiFixture() *ediFixture {
	wallets := newFakeWallets()
	wallets.wallets[1] = &models.Wallet{ID: 1, UserID: memberID, EmployeeID: "E-100", State: models.WalletQualified}
	wallets.categories[1] = &models.WalletCategory{ID: 1, WalletID: 1, Label: "FERTILITY", LimitCents: 1000000}

	edi := &fakeEdi{}
	storage := newFakeStorage()
	svc := NewEdiService(wallets, wallets, edi, storage,
		EdiConfig{AdministratorID: "WEX", EmployerID: "acme", OutputPath: "edi"}, zerolog.Nop()).(*ediServiceImpl)
	svc.now = func() time.Time { return ediNow }
	return &ediFixture{svc: svc, wallets: wallets, edi: edi, storage: storage}
}

func (f *ediFixture) addRequest(state models.ReimbursementState, amount int64) *models.ReimbursementRequest {
	decided := ediNow.Add(-time.Hour)
	r := &models.ReimbursementRequest{
		ID:          int64(len(f.wallets.requests) + 1),
		WalletID:    1,
		CategoryID:  1,
		AmountCents: amount,
		ServiceDate: time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC),
		State:       state,
		DecidedAt:   &decided,
	}
	f.wallets.requests[r.ID] = r
	return r
}

func resultFile(results ...edifile.Result) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "RA,%d,WEX,ACME,N\r\n", len(results))
	for _, r := range results {
		fmt.Fprintf(&b, "RH,%s,%s,%s\r\n", r.TrackingNumber, r.Code, r.Message)
	}
	return []byte(b.String())
}

func TestExportDeposits(t *testing.T) {
	f := newEdiFixture()
	ctx := context.Background()
	approved := f.addRequest(models.ReimbursementApproved, 12500)
	f.addRequest(models.ReimbursementNew, 9900)

	transfer, err := f.svc.ExportDeposits(ctx, ediNow)
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Regexp(t, `^ACME_deposits_20261018060000_[0-9A-F]{8}\.csv$`, transfer.Filename)
	assert.Equal(t, models.TransferOutbound, transfer.Direction)
	assert.Equal(t, 1, transfer.RecordCount)
	require.NotNil(t, approved.ExportedAt)

	header, deposits, err := edifile.ReadDeposits(bytes.NewReader(f.storage.files[transfer.StoragePath]))
	require.NoError(t, err)
	assert.Equal(t, "WEX", header.AdministratorID)
	assert.Equal(t, edifile.SyncFlagIncremental, header.SyncFlag)
	require.Len(t, deposits, 1)
	assert.Equal(t, "E-100", deposits[0].EmployeeID)
	assert.Equal(t, "FERTILITY", deposits[0].PlanID)
	assert.Equal(t, int64(12500), deposits[0].AmountCents)
	assert.Equal(t, strconv.FormatInt(approved.ID, 10), deposits[0].TrackingNumber)

	again, err := f.svc.ExportDeposits(ctx, ediNow.Add(time.Hour))
	require.NoError(t, err)
	assert.Nil(t, again, "already exported")
	assert.Len(t, f.edi.transfers, 1)
}

func TestExportDepositsSameSecond(t *testing.T) {
	f := newEdiFixture()
	ctx := context.Background()
	f.addRequest(models.ReimbursementApproved, 12500)

	first, err := f.svc.ExportDeposits(ctx, ediNow)
	require.NoError(t, err)
	require.NotNil(t, first)

	again, err := f.svc.ExportDeposits(ctx, ediNow)
	require.NoError(t, err)
	assert.Nil(t, again, "claimed requests are not exported twice")

	f.addRequest(models.ReimbursementApproved, 4000)
	second, err := f.svc.ExportDeposits(ctx, ediNow)
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, 1, second.RecordCount)
	assert.NotEqual(t, first.StoragePath, second.StoragePath)
	assert.Len(t, f.storage.files, 2)

	_, deposits, err := edifile.ReadDeposits(bytes.NewReader(f.storage.files[first.StoragePath]))
	require.NoError(t, err)
	require.Len(t, deposits, 1)
	assert.Equal(t, int64(12500), deposits[0].AmountCents)
}

func TestExportDepositsReleasesClaimOnFailure(t *testing.T) {
	f := newEdiFixture()
	ctx := context.Background()
	r := f.addRequest(models.ReimbursementApproved, 12500)

	f.edi.err = errors.New("connection reset")
	_, err := f.svc.ExportDeposits(ctx, ediNow)
	require.Error(t, err)
	assert.Nil(t, r.ExportedAt)
	assert.Empty(t, f.storage.files, "the unrecorded file is removed")

	f.edi.err = nil
	transfer, err := f.svc.ExportDeposits(ctx, ediNow.Add(time.Minute))
	require.NoError(t, err)
	require.NotNil(t, transfer)
	assert.Equal(t, 1, transfer.RecordCount)
	require.NotNil(t, r.ExportedAt)
}

func TestImportResults(t *testing.T) {
	f := newEdiFixture()
	ctx := context.Background()
	paid := f.addRequest(models.ReimbursementApproved, 12500)
	bounced := f.addRequest(models.ReimbursementApproved, 4000)
	denied := f.addRequest(models.ReimbursementDenied, 100)

	_, err := f.svc.ExportDeposits(ctx, ediNow)
	require.NoError(t, err)

	body := resultFile(
		edifile.Result{TrackingNumber: strconv.FormatInt(paid.ID, 10), Code: edifile.ResultCodeOK},
		edifile.Result{TrackingNumber: strconv.FormatInt(bounced.ID, 10), Code: "E12", Message: "employee not found"},
		edifile.Result{TrackingNumber: strconv.FormatInt(denied.ID, 10), Code: edifile.ResultCodeOK},
		edifile.Result{TrackingNumber: "999", Code: edifile.ResultCodeOK},
		edifile.Result{TrackingNumber: "ABC", Code: edifile.ResultCodeOK},
	)

	summary, err := f.svc.ImportResults(ctx, "inbox/ACME_results.csv", body)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Reimbursed)
	assert.Equal(t, 2, summary.Failed)
	assert.Equal(t, 2, summary.Unmatched)

	assert.Equal(t, models.ReimbursementReimbursed, paid.State)
	assert.Equal(t, models.ReimbursementApproved, bounced.State)
	assert.Nil(t, bounced.ExportedAt, "rejected deposits are exported again")

	require.Len(t, f.edi.transfers, 2)
	inbound := f.edi.transfers[1]
	assert.Equal(t, models.TransferInbound, inbound.Direction)
	assert.Equal(t, "ACME_results.csv", inbound.Filename)
	assert.Equal(t, 5, inbound.RecordCount)
	assert.Regexp(t, `^edi/inbound/ACME_results_20261018060000_[0-9A-F]{8}\.csv$`, inbound.StoragePath)
	assert.Contains(t, f.storage.files, inbound.StoragePath)

	again, err := f.svc.ExportDeposits(ctx, ediNow.Add(time.Hour))
	require.NoError(t, err)
	require.NotNil(t, again)
	assert.Equal(t, 1, again.RecordCount)
}

func TestImportResultsMalformed(t *testing.T) {
	f := newEdiFixture()

	_, err := f.svc.ImportResults(context.Background(), "bad.csv", []byte("IA,1,WEX\nnot,a,result\n"))
	assert.ErrorIs(t, err, apperrors.ErrMalformedFile)
	assert.Empty(t, f.edi.transfers)
}
