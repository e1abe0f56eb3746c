package services

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/carebridge/carebridge/internal/app/models"
	"github.com/carebridge/carebridge/internal/app/models/dto"
	"github.com/carebridge/carebridge/internal/pkg/apperrors"
	"github.com/carebridge/carebridge/internal/pkg/filestorage"
	"github.com/carebridge/carebridge/internal/pkg/helpers"
	"github.com/carebridge/carebridge/internal/pkg/money"
	"github.com/carebridge/carebridge/internal/pkg/payerfile"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const rowErrorNoPlan = "no member health plan active on the date of service"

// AccumulationConfig holds the file settings of the accumulation service
type AccumulationConfig struct {
	SenderID   string
	OutputPath string
}

// AccumulationService defines the interface for payer accumulation operations
type AccumulationService interface {
	CreateTreatment(ctx context.Context, req *dto.CreateTreatmentRequest) (*models.TreatmentProcedure, error)
	QueueProcedure(ctx context.Context, procedureID int64) (*models.AccumulationTreatmentMapping, error)
	QueueRefund(ctx context.Context, procedureID int64) (*models.AccumulationTreatmentMapping, error)
	GenerateReport(ctx context.Context, payerCode string, now time.Time) (*models.PayerAccumulationReport, error)
	GenerateAllReports(ctx context.Context, now time.Time) error
	SubmitReport(ctx context.Context, reportID int64) (*models.PayerAccumulationReport, error)
	ReconcileResponse(ctx context.Context, payerCode, body string) (*dto.ReconcileResult, error)
	RegenerateReport(ctx context.Context, reportID int64, now time.Time) (*models.PayerAccumulationReport, error)
	ExportReportXLSX(ctx context.Context, reportID int64) ([]byte, string, error)
}

type accumulationServiceImpl struct {
	treatmentRepo    treatmentStore
	planRepo         healthPlanStore
	payerRepo        payerStore
	accumulationRepo accumulationStore
	storage          filestorage.FileStorage
	config           AccumulationConfig
	logger           zerolog.Logger
	now              func() time.Time
}

// NewAccumulationService creates a new AccumulationService
func NewAccumulationService(
	treatmentRepo treatmentStore,
	planRepo healthPlanStore,
	payerRepo payerStore,
	accumulationRepo accumulationStore,
	storage filestorage.FileStorage,
	config AccumulationConfig,
	logger zerolog.Logger,
) AccumulationService {
	return &accumulationServiceImpl{
		treatmentRepo:    treatmentRepo,
		planRepo:         planRepo,
		payerRepo:        payerRepo,
		accumulationRepo: accumulationRepo,
		storage:          storage,
		config:           config,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *accumulationServiceImpl) CreateTreatment(ctx context.Context, req *dto.CreateTreatmentRequest) (*models.TreatmentProcedure, error) {
	start, err := helpers.ParseDate(req.StartDate)
	if err != nil {
		return nil, fmt.Errorf("%w: startDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
	}
	var end *time.Time
	if req.EndDate != "" {
		e, err := helpers.ParseDate(req.EndDate)
		if err != nil {
			return nil, fmt.Errorf("%w: endDate must be YYYY-MM-DD", apperrors.ErrValidationFailed)
		}
		if e.Before(start) {
			return nil, fmt.Errorf("%w: endDate is before startDate", apperrors.ErrValidationFailed)
		}
		end = &e
	}
	if req.CostCents < 0 || req.DeductibleCents < 0 || req.OOPCents < 0 {
		return nil, fmt.Errorf("%w: amounts cannot be negative", apperrors.ErrValidationFailed)
	}
	if req.PayerID != nil {
		if _, err := s.payerRepo.GetByID(ctx, *req.PayerID); err != nil {
			return nil, err
		}
	}

	t := &models.TreatmentProcedure{
		MemberID:        req.MemberID,
		PayerID:         req.PayerID,
		ProcedureName:   strings.TrimSpace(req.ProcedureName),
		StartDate:       start,
		EndDate:         end,
		CostCents:       req.CostCents,
		DeductibleCents: req.DeductibleCents,
		OOPCents:        req.OOPCents,
		Status:          req.Status,
	}
	if err := s.treatmentRepo.Create(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// QueueProcedure creates the accumulation mapping of a billable procedure.
// Procedures with nothing to accumulate are recorded as SKIP.
func (s *accumulationServiceImpl) QueueProcedure(ctx context.Context, procedureID int64) (*models.AccumulationTreatmentMapping, error) {
	t, err := s.treatmentRepo.GetByID(ctx, procedureID)
	if err != nil {
		return nil, err
	}
	if !t.Status.Billable() {
		return nil, fmt.Errorf("%w: procedure status %s cannot accumulate", apperrors.ErrValidationFailed, t.Status)
	}

	payerID, err := s.resolvePayer(ctx, t)
	if err != nil {
		return nil, err
	}

	m := &models.AccumulationTreatmentMapping{
		TreatmentProcedureID: t.ID,
		PayerID:              payerID,
		Status:               models.AccumulationWaiting,
		DeductibleCents:      t.DeductibleCents,
		OOPCents:             t.OOPCents,
		TransmissionID:       newTransmissionID(),
	}
	if t.DeductibleCents == 0 && t.OOPCents == 0 {
		m.Status = models.AccumulationSkip
	}

	if err := s.accumulationRepo.CreateMapping(ctx, m); err != nil {
		return nil, err
	}
	s.logger.Info().Int64("procedureID", t.ID).Int64("payerID", payerID).Str("status", string(m.Status)).Msg("Procedure queued for accumulation")
	return m, nil
}

// QueueRefund reverses a previously queued charge with negated amounts
func (s *accumulationServiceImpl) QueueRefund(ctx context.Context, procedureID int64) (*models.AccumulationTreatmentMapping, error) {
	charge, err := s.accumulationRepo.GetMapping(ctx, procedureID, false)
	if err != nil {
		if errors.Is(err, apperrors.ErrResourceNotFound) {
			return nil, fmt.Errorf("%w: procedure %d was never accumulated", apperrors.ErrValidationFailed, procedureID)
		}
		return nil, err
	}
	switch charge.Status {
	case models.AccumulationSkip, models.AccumulationRowError, models.AccumulationRejected:
		return nil, fmt.Errorf("%w: charge in status %s has nothing to refund", apperrors.ErrValidationFailed, charge.Status)
	}

	m := &models.AccumulationTreatmentMapping{
		TreatmentProcedureID: procedureID,
		PayerID:              charge.PayerID,
		Status:               models.AccumulationWaiting,
		DeductibleCents:      -charge.DeductibleCents,
		OOPCents:             -charge.OOPCents,
		IsRefund:             true,
		TransmissionID:       newTransmissionID(),
	}
	if err := s.accumulationRepo.CreateMapping(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// resolvePayer prefers the payer recorded on the procedure and falls back to
// the member plan active on the date of service
func (s *accumulationServiceImpl) resolvePayer(ctx context.Context, t *models.TreatmentProcedure) (int64, error) {
	if t.PayerID != nil {
		return *t.PayerID, nil
	}
	plan, err := s.planRepo.FindActive(ctx, t.MemberID, t.ServiceDate())
	if err != nil {
		return 0, err
	}
	return plan.PayerID, nil
}

// newTransmissionID returns a 20 character id that fits every payer layout
func newTransmissionID() string {
	return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:20]
}

// newRunID returns the 8 character suffix that keeps file names unique
func newRunID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// GenerateReport writes the payer's daily accumulator file from every WAITING
// mapping. Rows without a plan on the date of service are set aside as
// ROW_ERROR. The file is written even when no rows remain.
func (s *accumulationServiceImpl) GenerateReport(ctx context.Context, payerCode string, now time.Time) (*models.PayerAccumulationReport, error) {
	payer, format, err := s.payerFormat(ctx, payerCode)
	if err != nil {
		return nil, err
	}

	waiting, err := s.accumulationRepo.ListWaitingDetails(ctx, payer.ID)
	if err != nil {
		return nil, err
	}

	var ready []*models.AccumulationDetail
	var rowErrors []int64
	for _, d := range waiting {
		if d.SubscriberID == "" {
			rowErrors = append(rowErrors, d.Mapping.ID)
			continue
		}
		ready = append(ready, d)
	}
	if len(rowErrors) > 0 {
		if err := s.accumulationRepo.MarkRowErrors(ctx, rowErrors, rowErrorNoPlan); err != nil {
			return nil, err
		}
		s.logger.Warn().Str("payer", payer.Code).Int("rows", len(rowErrors)).Msg("Accumulation rows without an active plan marked as row errors")
	}

	file := s.buildFile(payer, now, ready)
	filename, storagePath, err := s.writeFile(format, payer, file, now)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, len(ready))
	for i, d := range ready {
		ids[i] = d.Mapping.ID
	}
	report := &models.PayerAccumulationReport{
		PayerID:              payer.ID,
		Filename:             filename,
		StoragePath:          storagePath,
		ReportDate:           helpers.StartOfDay(now.UTC()),
		Status:               models.ReportNew,
		DetailCount:          int(file.Trailer.RecordCount),
		TotalDeductibleCents: file.Trailer.TotalDeductible,
		TotalOOPCents:        file.Trailer.TotalOOP,
	}
	if err := s.accumulationRepo.CreateReport(ctx, report, ids); err != nil {
		if delErr := s.storage.Delete(storagePath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", storagePath).Msg("Failed to remove orphaned accumulator file")
		}
		return nil, err
	}

	s.logger.Info().Str("payer", payer.Code).Int64("reportID", report.ID).Int("details", report.DetailCount).
		Str("file", filename).Msg("Accumulation report generated")
	return report, nil
}

// GenerateAllReports runs GenerateReport for every payer with a file format
func (s *accumulationServiceImpl) GenerateAllReports(ctx context.Context, now time.Time) error {
	payers, err := s.payerRepo.List(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, p := range payers {
		if _, err := payerfile.Lookup(p.Code); err != nil {
			continue
		}
		if _, err := s.GenerateReport(ctx, p.Code, now); err != nil {
			errs = append(errs, fmt.Errorf("payer %s: %w", p.Code, err))
		}
	}
	return errors.Join(errs...)
}

func (s *accumulationServiceImpl) payerFormat(ctx context.Context, payerCode string) (*models.Payer, payerfile.Format, error) {
	payer, err := s.payerRepo.GetByCode(ctx, strings.ToLower(strings.TrimSpace(payerCode)))
	if err != nil {
		return nil, payerfile.Format{}, err
	}
	format, err := payerfile.Lookup(payer.Code)
	if err != nil {
		return nil, payerfile.Format{}, fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
	}
	return payer, format, nil
}

func (s *accumulationServiceImpl) buildFile(payer *models.Payer, now time.Time, details []*models.AccumulationDetail) *payerfile.File {
	file := &payerfile.File{
		Header: payerfile.Header{
			SenderID:   s.config.SenderID,
			ReceiverID: payer.ReceiverID,
			CreatedAt:  now.UTC(),
			FileID:     strings.ToUpper(payer.Code) + now.UTC().Format("20060102150405"),
		},
		Details: make([]payerfile.Detail, 0, len(details)),
	}
	for _, d := range details {
		file.Details = append(file.Details, payerfile.Detail{
			TransmissionID:  d.Mapping.TransmissionID,
			MemberID:        d.SubscriberID,
			FirstName:       d.FirstName,
			LastName:        d.LastName,
			DateOfBirth:     d.DateOfBirth,
			DateOfService:   d.DateOfService,
			IsReversal:      d.Mapping.IsRefund,
			DeductibleCents: d.Mapping.DeductibleCents,
			OOPCents:        d.Mapping.OOPCents,
		})
	}
	file.Trailer = file.Totals()
	return file
}

func (s *accumulationServiceImpl) writeFile(format payerfile.Format, payer *models.Payer, file *payerfile.File, now time.Time) (string, string, error) {
	body, err := payerfile.Build(format, file)
	if err != nil {
		return "", "", fmt.Errorf("encode accumulator file: %w", err)
	}
	filename := payerfile.FileName(format, s.config.SenderID, now, newRunID())
	storagePath, err := s.storage.Save(path.Join(s.config.OutputPath, payer.Code), filename, []byte(body))
	if err != nil {
		return "", "", fmt.Errorf("store accumulator file: %w", err)
	}
	return filename, storagePath, nil
}

func (s *accumulationServiceImpl) SubmitReport(ctx context.Context, reportID int64) (*models.PayerAccumulationReport, error) {
	if err := s.accumulationRepo.SubmitReport(ctx, reportID, s.now().UTC()); err != nil {
		return nil, err
	}
	return s.accumulationRepo.GetReport(ctx, reportID)
}

// ReconcileResponse applies a payer response file to the submitted mappings
func (s *accumulationServiceImpl) ReconcileResponse(ctx context.Context, payerCode, body string) (*dto.ReconcileResult, error) {
	payer, format, err := s.payerFormat(ctx, payerCode)
	if err != nil {
		return nil, err
	}
	file, err := payerfile.Parse(format, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrMalformedFile, err)
	}

	ids := make([]string, len(file.Details))
	for i, d := range file.Details {
		ids[i] = d.TransmissionID
	}
	mappings, err := s.accumulationRepo.FindByTransmissionIDs(ctx, payer.ID, ids)
	if err != nil {
		return nil, err
	}

	result := &dto.ReconcileResult{}
	var resolutions []models.MappingResolution
	for _, d := range file.Details {
		m, ok := mappings[d.TransmissionID]
		if !ok {
			result.Unmatched++
			s.logger.Warn().Str("payer", payer.Code).Str("transmissionID", d.TransmissionID).Msg("Response row has no matching accumulation mapping")
			continue
		}
		res := models.MappingResolution{MappingID: m.ID, Status: models.AccumulationAccepted}
		if !d.Accepted() {
			reason := strings.TrimSpace(d.RejectCode + " " + d.RejectReason)
			res.Status, res.Reason = models.AccumulationRejected, &reason
		}
		resolutions = append(resolutions, res)
	}

	applied, err := s.accumulationRepo.ResolveMappings(ctx, resolutions)
	if err != nil {
		return nil, err
	}
	for i, res := range resolutions {
		switch {
		case !applied[i]:
			result.Skipped++
			s.logger.Warn().Str("payer", payer.Code).Int64("mappingID", res.MappingID).Msg("Response row for a mapping that is not SUBMITTED ignored")
		case res.Status == models.AccumulationAccepted:
			result.Accepted++
		default:
			result.Rejected++
		}
	}

	s.logger.Info().Str("payer", payer.Code).Int("accepted", result.Accepted).Int("rejected", result.Rejected).
		Int("unmatched", result.Unmatched).Int("skipped", result.Skipped).Msg("Payer response reconciled")
	return result, nil
}

// RegenerateReport re-encodes a report's mappings into a new file
func (s *accumulationServiceImpl) RegenerateReport(ctx context.Context, reportID int64, now time.Time) (*models.PayerAccumulationReport, error) {
	report, err := s.accumulationRepo.GetReport(ctx, reportID)
	if err != nil {
		return nil, err
	}
	payer, err := s.payerRepo.GetByID(ctx, report.PayerID)
	if err != nil {
		return nil, err
	}
	format, err := payerfile.Lookup(payer.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrValidationFailed, err)
	}
	details, err := s.accumulationRepo.ListReportDetails(ctx, reportID)
	if err != nil {
		return nil, err
	}

	file := s.buildFile(payer, now, details)
	filename, storagePath, err := s.writeFile(format, payer, file, now)
	if err != nil {
		return nil, err
	}
	if err := s.accumulationRepo.UpdateReportFile(ctx, reportID, filename, storagePath); err != nil {
		if delErr := s.storage.Delete(storagePath); delErr != nil {
			s.logger.Warn().Err(delErr).Str("path", storagePath).Msg("Failed to remove orphaned accumulator file")
		}
		return nil, err
	}

	report.Filename, report.StoragePath = filename, storagePath
	s.logger.Info().Int64("reportID", reportID).Str("file", filename).Msg("Accumulation report regenerated")
	return report, nil
}

var xlsxHeaders = []interface{}{
	"Transmission ID", "Member ID", "First Name", "Last Name", "Date of Service",
	"Procedure", "Refund", "Deductible", "Out of Pocket", "Status", "Error",
}

// ExportReportXLSX renders the report details as a spreadsheet
func (s *accumulationServiceImpl) ExportReportXLSX(ctx context.Context, reportID int64) ([]byte, string, error) {
	report, err := s.accumulationRepo.GetReport(ctx, reportID)
	if err != nil {
		return nil, "", err
	}
	details, err := s.accumulationRepo.ListReportDetails(ctx, reportID)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Report"
	if err := f.SetSheetName("Sheet1", sheet); err != nil {
		return nil, "", err
	}
	if err := f.SetSheetRow(sheet, "A1", &xlsxHeaders); err != nil {
		return nil, "", err
	}
	for i, d := range details {
		reason := ""
		if d.Mapping.RowErrorReason != nil {
			reason = *d.Mapping.RowErrorReason
		}
		row := []interface{}{
			d.Mapping.TransmissionID, d.SubscriberID, d.FirstName, d.LastName,
			d.DateOfService.Format(helpers.DateLayout), d.ProcedureName, d.Mapping.IsRefund,
			money.FormatDollars(d.Mapping.DeductibleCents), money.FormatDollars(d.Mapping.OOPCents),
			string(d.Mapping.Status), reason,
		}
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, "", err
		}
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			return nil, "", err
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, "", fmt.Errorf("write spreadsheet: %w", err)
	}
	name := strings.TrimSuffix(report.Filename, path.Ext(report.Filename)) + ".xlsx"
	return buf.Bytes(), name, nil
}
