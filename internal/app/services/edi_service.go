package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/edifile"
	"github.com/carebridge/carebridge/internal/pkg/filestorage"
	"github.com/rs/zerolog"
)

// EdiConfig identifies the platform to the benefits administrator
type EdiConfig struct {
	AdministratorID string
	EmployerID      string
	OutputPath      string
}

type reimbursementGetter interface {
	GetReimbursement(ctx context.Context, id int64) (*models.ReimbursementRequest, error)
}

// EdiService defines the interface for benefits-administrator file exchange
type EdiService interface {
	ExportDeposits(ctx context.Context, now time.Time) (*models.EdiTransfer, error)
	ImportResults(ctx context.Context, filename string, body []byte) (*dto.ResultImportResponse, error)
}

type ediServiceImpl struct {
	deposits       depositStore
	reimbursements reimbursementGetter
	ediRepo        ediStore
	storage        filestorage.FileStorage
	config         EdiConfig
	logger         zerolog.Logger
	now            func() time.Time
}

// NewEdiService creates a new EdiService
func NewEdiService(
	deposits depositStore,
	reimbursements reimbursementGetter,
	ediRepo ediStore,
	storage filestorage.FileStorage,
	config EdiConfig,
	logger zerolog.Logger,
) EdiService {
	return &ediServiceImpl{
		deposits:       deposits,
		reimbursements: reimbursements,
		ediRepo:        ediRepo,
		storage:        storage,
		config:         config,
		logger:         logger,
		now:            time.Now,
	}
}

// ExportDeposits claims every approved, unexported reimbursement and writes
// one deposit per claimed request. Returns a nil transfer when there is
// nothing to export. The claim is released when the file cannot be stored
// or recorded.
func (s *ediServiceImpl) ExportDeposits(ctx context.Context, now time.Time) (*models.EdiTransfer, error) {
	// exported_at keeps microseconds; the release matches on the stored value
	claimedAt := now.UTC().Truncate(time.Microsecond)
	candidates, err := s.deposits.ClaimDepositCandidates(ctx, claimedAt)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		s.logger.Info().Msg("No approved reimbursements to export")
		return nil, nil
	}

	deposits := make([]edifile.Deposit, len(candidates))
	ids := make([]int64, len(candidates))
	for i, c := range candidates {
		deposits[i] = edifile.Deposit{
			EmployeeID:     c.EmployeeID,
			PlanID:         c.CategoryLabel,
			DepositType:    edifile.DepositTypeReimbursement,
			AmountCents:    c.AmountCents,
			DepositDate:    now.UTC(),
			TrackingNumber: strconv.FormatInt(c.RequestID, 10),
		}
		ids[i] = c.RequestID
	}

	transfer, err := s.storeDeposits(ctx, now, deposits)
	if err != nil {
		if relErr := s.deposits.ReleaseExported(ctx, ids, claimedAt); relErr != nil {
			s.logger.Error().Err(relErr).Ints64("reimbursementIDs", ids).Msg("Failed to release claimed reimbursements")
			return nil, errors.Join(err, relErr)
		}
		return nil, err
	}

	s.logger.Info().Str("file", transfer.Filename).Int("records", len(deposits)).Msg("Deposit file exported")
	return transfer, nil
}

// storeDeposits encodes, stores and records the deposit file. A stored file
// whose transfer cannot be recorded is removed again.
func (s *ediServiceImpl) storeDeposits(ctx context.Context, now time.Time, deposits []edifile.Deposit) (*models.EdiTransfer, error) {
	var buf bytes.Buffer
	header := edifile.Header{
		AdministratorID: s.config.AdministratorID,
		EmployerID:      s.config.EmployerID,
		SyncFlag:        edifile.SyncFlagIncremental,
	}
	if err := edifile.WriteDeposits(&buf, header, deposits); err != nil {
		return nil, fmt.Errorf("encode deposit file: %w", err)
	}
	if err := checkDeposits(buf.Bytes(), deposits); err != nil {
		return nil, err
	}

	filename := fmt.Sprintf("%s_deposits_%s_%s.csv",
		strings.ToUpper(s.config.EmployerID), now.UTC().Format("20060102150405"), strings.ToUpper(newRunID()))
	storagePath, err := s.storage.Save(path.Join(s.config.OutputPath, "outbound"), filename, buf.Bytes())
	if err != nil {
		return nil, fmt.Errorf("store deposit file: %w", err)
	}

	transfer := &models.EdiTransfer{
		Filename:    filename,
		StoragePath: storagePath,
		Direction:   models.TransferOutbound,
		RecordCount: len(deposits),
	}
	if err := s.ediRepo.CreateTransfer(ctx, transfer); err != nil {
		if delErr := s.storage.Delete(storagePath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", storagePath).Msg("Failed to remove orphaned deposit file")
		}
		return nil, err
	}
	return transfer, nil
}

// checkDeposits reads an encoded export back and compares it with what was
// meant to be written.
func checkDeposits(body []byte, want []edifile.Deposit) error {
	header, got, err := edifile.ReadDeposits(bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("deposit file does not read back: %w", err)
	}
	if header.RecordCount != len(want) || len(got) != len(want) {
		return fmt.Errorf("deposit file holds %d records, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i].TrackingNumber != want[i].TrackingNumber || got[i].AmountCents != want[i].AmountCents {
			return fmt.Errorf("deposit file record %d does not match request %s", i+1, want[i].TrackingNumber)
		}
	}
	return nil
}

// ImportResults applies an administrator result file. Accepted records mark
// their reimbursement REIMBURSED; rejected ones are released for the next
// export.
func (s *ediServiceImpl) ImportResults(ctx context.Context, filename string, body []byte) (*dto.ResultImportResponse, error) {
	_, results, err := edifile.ReadResults(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedFile, err)
	}

	out := &dto.ResultImportResponse{}
	for _, res := range results {
		id, err := strconv.ParseInt(strings.TrimSpace(res.TrackingNumber), 10, 64)
		if err != nil {
			out.Unmatched++
			s.logger.Warn().Str("tracking", res.TrackingNumber).Msg("Result record has a non-numeric tracking number")
			continue
		}
		if _, err := s.reimbursements.GetReimbursement(ctx, id); err != nil {
			if errors.Is(err, apperrors.ErrReimbursementNotFound) {
				out.Unmatched++
				s.logger.Warn().Int64("reimbursementID", id).Msg("Result record matches no reimbursement")
				continue
			}
			return nil, err
		}

		if !res.OK() {
			out.Failed++
			s.logger.Warn().Int64("reimbursementID", id).Str("code", res.Code).Str("message", res.Message).Msg("Deposit rejected by administrator")
			if err := s.deposits.ClearExported(ctx, id); err != nil {
				return nil, err
			}
			continue
		}

		if err := s.deposits.MarkReimbursed(ctx, id); err != nil {
			if errors.Is(err, apperrors.ErrInvalidStateTransition) {
				out.Failed++
				s.logger.Warn().Int64("reimbursementID", id).Msg("Accepted deposit is not in APPROVED state")
				continue
			}
			return nil, err
		}
		out.Reimbursed++
	}

	if filename == "" {
		filename = "results.csv"
	}
	filename = path.Base(filename)
	ext := path.Ext(filename)
	archived := fmt.Sprintf("%s_%s_%s%s", strings.TrimSuffix(filename, ext),
		s.now().UTC().Format("20060102150405"), strings.ToUpper(newRunID()), ext)
	storagePath, err := s.storage.Save(path.Join(s.config.OutputPath, "inbound"), archived, body)
	if err != nil {
		s.logger.Warn().Err(err).Str("file", filename).Msg("Failed to archive result file")
	} else if err := s.ediRepo.CreateTransfer(ctx, &models.EdiTransfer{
		Filename:    filename,
		StoragePath: storagePath,
		Direction:   models.TransferInbound,
		RecordCount: len(results),
	}); err != nil {
		return nil, err
	}

	s.logger.Info().Int("reimbursed", out.Reimbursed).Int("failed", out.Failed).Int("unmatched", out.Unmatched).Msg("Result file imported")
	return out, nil
}
