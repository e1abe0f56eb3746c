// Package edifile reads and writes the comma-delimited record files exchanged
// with the benefits administrator: deposit exports (IA header + IH records)
// and their result files (RA header + RH records).
package edifile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/carebridge/carebridge/internal/pkg/money"
)

// Record type prefixes.
const (
	RecordExportHeader = "IA"
	RecordDeposit      = "IH"
	RecordResultHeader = "RA"
	RecordResult       = "RH"
)

// ResultCodeOK is the result code of an accepted record.
const ResultCodeOK = "0"

// DepositTypeReimbursement is the deposit type sent for approved reimbursements.
const DepositTypeReimbursement = "2"

// SyncFlagIncremental asks the administrator to add the records to what it
// already holds.
const SyncFlagIncremental = "N"

const dateLayout = "20060102"

// ErrMalformed is returned when a file cannot be parsed.
var ErrMalformed = errors.New("malformed edi file")

// Header is the first record of every file:
// type, record count, administrator id, employer id, sync flag.
type Header struct {
	RecordCount     int
	AdministratorID string
	EmployerID      string
	SyncFlag        string
}

// Deposit is one IH record.
type Deposit struct {
	EmployeeID     string
	PlanID         string
	DepositType    string
	AmountCents    int64
	DepositDate    time.Time
	TrackingNumber string
}

// Result is one RH record.
type Result struct {
	TrackingNumber string
	Code           string
	Message        string
}

// OK reports whether the administrator accepted the record.
func (r Result) OK() bool {
	return strings.TrimSpace(r.Code) == ResultCodeOK
}

// WriteDeposits writes an IA header followed by one IH record per deposit.
// The header's RecordCount is set from len(deposits); an empty SyncFlag is
// sent as SyncFlagIncremental.
func WriteDeposits(w io.Writer, h Header, deposits []Deposit) error {
	cw := csv.NewWriter(w)
	cw.UseCRLF = true

	h.RecordCount = len(deposits)
	if h.SyncFlag == "" {
		h.SyncFlag = SyncFlagIncremental
	}
	if err := cw.Write([]string{RecordExportHeader, strconv.Itoa(h.RecordCount), h.AdministratorID, h.EmployerID, h.SyncFlag}); err != nil {
		return err
	}
	for _, d := range deposits {
		depositType := d.DepositType
		if depositType == "" {
			depositType = DepositTypeReimbursement
		}
		if err := cw.Write([]string{
			RecordDeposit,
			h.AdministratorID,
			h.EmployerID,
			d.EmployeeID,
			d.PlanID,
			depositType,
			money.FormatDollars(d.AmountCents),
			d.DepositDate.Format(dateLayout),
			d.TrackingNumber,
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadDeposits parses a deposit export.
func ReadDeposits(r io.Reader) (Header, []Deposit, error) {
	rows, err := readRows(r)
	if err != nil {
		return Header{}, nil, err
	}
	h, err := parseHeader(rows, RecordExportHeader)
	if err != nil {
		return Header{}, nil, err
	}

	deposits := make([]Deposit, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if row[0] != RecordDeposit || len(row) != 9 {
			return Header{}, nil, fmt.Errorf("%w: line %d: expected %s record with 9 fields", ErrMalformed, i+2, RecordDeposit)
		}
		amount, err := money.ParseDollars(row[6])
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, i+2, err)
		}
		date, err := time.Parse(dateLayout, row[7])
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, i+2, err)
		}
		deposits = append(deposits, Deposit{
			EmployeeID:     row[3],
			PlanID:         row[4],
			DepositType:    row[5],
			AmountCents:    amount,
			DepositDate:    date,
			TrackingNumber: row[8],
		})
	}
	return h, deposits, nil
}

// ReadResults parses a result file.
func ReadResults(r io.Reader) (Header, []Result, error) {
	rows, err := readRows(r)
	if err != nil {
		return Header{}, nil, err
	}
	h, err := parseHeader(rows, RecordResultHeader)
	if err != nil {
		return Header{}, nil, err
	}

	results := make([]Result, 0, len(rows)-1)
	for i, row := range rows[1:] {
		if row[0] != RecordResult || len(row) < 3 {
			return Header{}, nil, fmt.Errorf("%w: line %d: expected %s record", ErrMalformed, i+2, RecordResult)
		}
		res := Result{TrackingNumber: row[1], Code: row[2]}
		if len(row) > 3 {
			res.Message = row[3]
		}
		results = append(results, res)
	}
	return h, results, nil
}

func readRows(r io.Reader) ([][]string, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	var rows [][]string
	for {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}
		if len(row) == 0 || (len(row) == 1 && strings.TrimSpace(row[0]) == "") {
			continue
		}
		row[0] = strings.ToUpper(strings.TrimSpace(row[0]))
		rows = append(rows, row)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformed)
	}
	return rows, nil
}

func parseHeader(rows [][]string, recordType string) (Header, error) {
	head := rows[0]
	if head[0] != recordType || len(head) < 5 {
		return Header{}, fmt.Errorf("%w: first record must be %s", ErrMalformed, recordType)
	}
	count, err := strconv.Atoi(strings.TrimSpace(head[1]))
	if err != nil {
		return Header{}, fmt.Errorf("%w: header count: %v", ErrMalformed, err)
	}
	if count != len(rows)-1 {
		return Header{}, fmt.Errorf("%w: header declares %d records, file has %d", ErrMalformed, count, len(rows)-1)
	}
	return Header{
		RecordCount:     count,
		AdministratorID: head[2],
		EmployerID:      head[3],
		SyncFlag:        strings.ToUpper(strings.TrimSpace(head[4])),
	}, nil
}
