package payerfile

import (
	"bufio"
	"errors"
	"fmt"
	"strings"
	"time"

	fw "github.com/carebridge/carebridge/internal/pkg/fixedwidth"
)

// Action codes carried on each detail.
const (
	ActionAccumulate = "A"
	ActionReversal   = "R"
)

// AcceptedRejectCode marks an accepted detail in a response file. A blank
// reject code is also treated as accepted.
const AcceptedRejectCode = "000"

var (
	// ErrUnknownFormat is returned for payer codes without a registered format.
	ErrUnknownFormat = errors.New("unknown accumulator file format")
	// ErrMalformed is returned when a file's structure is invalid.
	ErrMalformed = errors.New("malformed accumulator file")
)

// Header identifies the file.
type Header struct {
	SenderID   string
	ReceiverID string
	CreatedAt  time.Time
	FileID     string
}

// Detail is one accumulated claim.
type Detail struct {
	TransmissionID  string
	MemberID        string
	FirstName       string
	LastName        string
	DateOfBirth     time.Time
	DateOfService   time.Time
	IsReversal      bool
	DeductibleCents int64
	OOPCents        int64
	RejectCode      string
	RejectReason    string
}

// Accepted reports whether a response detail was accepted by the payer.
func (d Detail) Accepted() bool {
	code := strings.TrimSpace(d.RejectCode)
	return code == "" || code == AcceptedRejectCode
}

// Trailer carries control totals.
type Trailer struct {
	RecordCount     int64
	TotalDeductible int64
	TotalOOP        int64
}

// File is a full accumulator file.
type File struct {
	Header  Header
	Details []Detail
	Trailer Trailer
}

// Totals computes the trailer for the file's details.
func (f *File) Totals() Trailer {
	t := Trailer{RecordCount: int64(len(f.Details))}
	for _, d := range f.Details {
		t.TotalDeductible += d.DeductibleCents
		t.TotalOOP += d.OOPCents
	}
	return t
}

// Build encodes the file in the given format. The trailer is always
// recomputed from the details. Records are separated by CRLF.
func Build(format Format, file *File) (string, error) {
	var b strings.Builder
	file.Trailer = file.Totals()

	header, err := fw.Encode(format.Header, fw.Values{
		FieldRecordType:   format.HeaderType,
		FieldSenderID:     file.Header.SenderID,
		FieldReceiverID:   file.Header.ReceiverID,
		FieldCreationDate: file.Header.CreatedAt,
		FieldCreationTime: file.Header.CreatedAt,
		FieldFileID:       file.Header.FileID,
	})
	if err != nil {
		return "", err
	}
	b.WriteString(header)
	b.WriteString("\r\n")

	for i, d := range file.Details {
		action := ActionAccumulate
		if d.IsReversal {
			action = ActionReversal
		}
		line, err := fw.Encode(format.Detail, fw.Values{
			FieldRecordType:       format.DetailType,
			FieldTransmissionID:   d.TransmissionID,
			FieldMemberID:         d.MemberID,
			FieldFirstName:        d.FirstName,
			FieldLastName:         d.LastName,
			FieldDateOfBirth:      d.DateOfBirth,
			FieldDateOfService:    d.DateOfService,
			FieldActionCode:       action,
			FieldDeductibleAmount: d.DeductibleCents,
			FieldOOPAmount:        d.OOPCents,
			FieldRejectCode:       d.RejectCode,
			FieldRejectReason:     d.RejectReason,
		})
		if err != nil {
			return "", fmt.Errorf("detail %d: %w", i+1, err)
		}
		b.WriteString(line)
		b.WriteString("\r\n")
	}

	trailer, err := fw.Encode(format.Trailer, fw.Values{
		FieldRecordType:      format.TrailerType,
		FieldRecordCount:     file.Trailer.RecordCount,
		FieldTotalDeductible: file.Trailer.TotalDeductible,
		FieldTotalOOP:        file.Trailer.TotalOOP,
	})
	if err != nil {
		return "", err
	}
	b.WriteString(trailer)
	b.WriteString("\r\n")

	return b.String(), nil
}

// Parse decodes a file in the given format and checks the trailer totals.
func Parse(format Format, body string) (*File, error) {
	recordType, ok := format.Detail.Field(FieldRecordType)
	if !ok {
		return nil, fmt.Errorf("%w: format %s has no record type", ErrMalformed, format.Name)
	}

	file := &File{}
	var sawHeader, sawTrailer bool
	lineNo := 0

	scanner := bufio.NewScanner(strings.NewReader(body))
	scanner.Buffer(make([]byte, 0, 4096), 1024*1024)
	for scanner.Scan() {
		lineNo++
		line := strings.TrimRight(scanner.Text(), "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		if sawTrailer {
			return nil, fmt.Errorf("%w: line %d: record after trailer", ErrMalformed, lineNo)
		}

		switch strings.TrimSpace(fw.Peek(recordType, line)) {
		case format.HeaderType:
			if sawHeader {
				return nil, fmt.Errorf("%w: line %d: duplicate header", ErrMalformed, lineNo)
			}
			rec, err := fw.Decode(format.Header, line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			file.Header = headerFromRecord(rec)
			sawHeader = true

		case format.DetailType:
			if !sawHeader {
				return nil, fmt.Errorf("%w: line %d: detail before header", ErrMalformed, lineNo)
			}
			rec, err := fw.Decode(format.Detail, line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			file.Details = append(file.Details, detailFromRecord(rec))

		case format.TrailerType:
			if !sawHeader {
				return nil, fmt.Errorf("%w: line %d: trailer before header", ErrMalformed, lineNo)
			}
			rec, err := fw.Decode(format.Trailer, line)
			if err != nil {
				return nil, fmt.Errorf("%w: line %d: %v", ErrMalformed, lineNo, err)
			}
			file.Trailer = Trailer{
				RecordCount:     rec.Int(FieldRecordCount),
				TotalDeductible: rec.Int(FieldTotalDeductible),
				TotalOOP:        rec.Int(FieldTotalOOP),
			}
			sawTrailer = true

		default:
			return nil, fmt.Errorf("%w: line %d: unknown record type %q", ErrMalformed, lineNo, fw.Peek(recordType, line))
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if !sawHeader || !sawTrailer {
		return nil, fmt.Errorf("%w: missing header or trailer", ErrMalformed)
	}
	if want := file.Totals(); want != file.Trailer {
		return nil, fmt.Errorf("%w: trailer %+v does not match details %+v", ErrMalformed, file.Trailer, want)
	}
	return file, nil
}

func headerFromRecord(rec fw.Record) Header {
	date := rec.Time(FieldCreationDate)
	clock := rec.Time(FieldCreationTime)
	created := time.Date(date.Year(), date.Month(), date.Day(), clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC)
	return Header{
		SenderID:   rec.Text(FieldSenderID),
		ReceiverID: rec.Text(FieldReceiverID),
		CreatedAt:  created,
		FileID:     rec.Text(FieldFileID),
	}
}

func detailFromRecord(rec fw.Record) Detail {
	return Detail{
		TransmissionID:  rec.Text(FieldTransmissionID),
		MemberID:        rec.Text(FieldMemberID),
		FirstName:       rec.Text(FieldFirstName),
		LastName:        rec.Text(FieldLastName),
		DateOfBirth:     rec.Time(FieldDateOfBirth),
		DateOfService:   rec.Time(FieldDateOfService),
		IsReversal:      rec.Text(FieldActionCode) == ActionReversal,
		DeductibleCents: rec.Int(FieldDeductibleAmount),
		OOPCents:        rec.Int(FieldOOPAmount),
		RejectCode:      rec.Text(FieldRejectCode),
		RejectReason:    rec.Text(FieldRejectReason),
	}
}

// FileName returns the conventional file name for a generated file. runID
// tells apart files produced within the same second.
func FileName(format Format, senderID string, createdAt time.Time, runID string) string {
	return fmt.Sprintf("%s_%s_accumulator_%s_%s.%s",
		strings.ToUpper(senderID),
		strings.ToUpper(format.Name),
		createdAt.UTC().Format("20060102_150405"),
		strings.ToUpper(runID),
		format.FileExtension,
	)
}
