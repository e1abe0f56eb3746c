// Package payerfile builds and parses payer accumulator files: a header
// record, one detail record per accumulated claim and a trailer carrying
// counts and amount totals.
package payerfile

import (
	"fmt"
	"strings"

	fw "github.com/carebridge/carebridge/internal/pkg/fixedwidth"
)

// Field names shared by every format.
const (
	FieldRecordType       = "record_type"
	FieldSenderID         = "sender_id"
	FieldReceiverID       = "receiver_id"
	FieldCreationDate     = "creation_date"
	FieldCreationTime     = "creation_time"
	FieldFileID           = "file_id"
	FieldTransmissionID   = "transmission_id"
	FieldMemberID         = "member_id"
	FieldLastName         = "last_name"
	FieldFirstName        = "first_name"
	FieldDateOfBirth      = "date_of_birth"
	FieldDateOfService    = "date_of_service"
	FieldActionCode       = "action_code"
	FieldDeductibleAmount = "deductible_amount"
	FieldOOPAmount        = "oop_amount"
	FieldRejectCode       = "reject_code"
	FieldRejectReason     = "reject_reason"
	FieldRecordCount      = "record_count"
	FieldTotalDeductible  = "total_deductible"
	FieldTotalOOP         = "total_oop"
)

// Format describes one payer's accumulator file.
type Format struct {
	Name        string
	HeaderType  string
	DetailType  string
	TrailerType string
	Header      fw.Layout
	Detail      fw.Layout
	Trailer     fw.Layout
	// FileExtension is appended to generated file names.
	FileExtension string
}

// RecordLength is the common length of every record in the format.
func (f Format) RecordLength() int {
	return f.Detail.RecordLength
}

// ESI uses 200-byte records with two-letter record types.
var ESI = Format{
	Name:          "esi",
	HeaderType:    "HD",
	DetailType:    "DT",
	TrailerType:   "TR",
	FileExtension: "txt",
	Header: fw.MustLayout("esi_header", 200,
		fw.Field{Name: FieldRecordType, Length: 2, Kind: fw.Alpha, Default: "HD"},
		fw.Field{Name: FieldSenderID, Length: 10, Kind: fw.Alpha},
		fw.Field{Name: FieldReceiverID, Length: 10, Kind: fw.Alpha},
		fw.Field{Name: FieldCreationDate, Length: 8, Kind: fw.Date},
		fw.Field{Name: FieldCreationTime, Length: 6, Kind: fw.Date, DateFormat: "150405"},
		fw.Field{Name: FieldFileID, Length: 20, Kind: fw.Alpha},
		fw.Field{Length: 144, Kind: fw.Filler},
	),
	Detail: fw.MustLayout("esi_detail", 200,
		fw.Field{Name: FieldRecordType, Length: 2, Kind: fw.Alpha, Default: "DT"},
		fw.Field{Name: FieldTransmissionID, Length: 20, Kind: fw.Alpha},
		fw.Field{Name: FieldMemberID, Length: 20, Kind: fw.Alpha},
		fw.Field{Name: FieldLastName, Length: 25, Kind: fw.Alpha},
		fw.Field{Name: FieldFirstName, Length: 15, Kind: fw.Alpha},
		fw.Field{Name: FieldDateOfBirth, Length: 8, Kind: fw.Date},
		fw.Field{Name: FieldDateOfService, Length: 8, Kind: fw.Date},
		fw.Field{Name: FieldActionCode, Length: 1, Kind: fw.Alpha, Default: ActionAccumulate},
		fw.Field{Name: FieldDeductibleAmount, Length: 11, Kind: fw.SignedAmount},
		fw.Field{Name: FieldOOPAmount, Length: 11, Kind: fw.SignedAmount},
		fw.Field{Name: FieldRejectCode, Length: 3, Kind: fw.Alpha},
		fw.Field{Name: FieldRejectReason, Length: 40, Kind: fw.Alpha},
		fw.Field{Length: 36, Kind: fw.Filler},
	),
	Trailer: fw.MustLayout("esi_trailer", 200,
		fw.Field{Name: FieldRecordType, Length: 2, Kind: fw.Alpha, Default: "TR"},
		fw.Field{Name: FieldRecordCount, Length: 9, Kind: fw.Numeric},
		fw.Field{Name: FieldTotalDeductible, Length: 13, Kind: fw.SignedAmount},
		fw.Field{Name: FieldTotalOOP, Length: 13, Kind: fw.SignedAmount},
		fw.Field{Length: 163, Kind: fw.Filler},
	),
}

// UHC uses 300-byte records with single digit record types.
var UHC = Format{
	Name:          "uhc",
	HeaderType:    "0",
	DetailType:    "1",
	TrailerType:   "9",
	FileExtension: "dat",
	Header: fw.MustLayout("uhc_header", 300,
		fw.Field{Name: FieldRecordType, Length: 1, Kind: fw.Alpha, Default: "0"},
		fw.Field{Name: FieldSenderID, Length: 15, Kind: fw.Alpha},
		fw.Field{Name: FieldReceiverID, Length: 15, Kind: fw.Alpha},
		fw.Field{Name: FieldCreationDate, Length: 8, Kind: fw.Date},
		fw.Field{Name: FieldCreationTime, Length: 6, Kind: fw.Date, DateFormat: "150405"},
		fw.Field{Name: FieldFileID, Length: 30, Kind: fw.Alpha},
		fw.Field{Length: 225, Kind: fw.Filler},
	),
	Detail: fw.MustLayout("uhc_detail", 300,
		fw.Field{Name: FieldRecordType, Length: 1, Kind: fw.Alpha, Default: "1"},
		fw.Field{Name: FieldTransmissionID, Length: 30, Kind: fw.Alpha},
		fw.Field{Name: FieldMemberID, Length: 20, Kind: fw.Alpha},
		fw.Field{Name: FieldFirstName, Length: 20, Kind: fw.Alpha},
		fw.Field{Name: FieldLastName, Length: 35, Kind: fw.Alpha},
		fw.Field{Name: FieldDateOfBirth, Length: 8, Kind: fw.Date},
		fw.Field{Name: FieldDateOfService, Length: 8, Kind: fw.Date},
		fw.Field{Name: FieldActionCode, Length: 1, Kind: fw.Alpha, Default: ActionAccumulate},
		fw.Field{Name: FieldDeductibleAmount, Length: 9, Kind: fw.SignedAmount},
		fw.Field{Name: FieldOOPAmount, Length: 9, Kind: fw.SignedAmount},
		fw.Field{Name: FieldRejectCode, Length: 3, Kind: fw.Alpha},
		fw.Field{Name: FieldRejectReason, Length: 60, Kind: fw.Alpha},
		fw.Field{Length: 96, Kind: fw.Filler},
	),
	Trailer: fw.MustLayout("uhc_trailer", 300,
		fw.Field{Name: FieldRecordType, Length: 1, Kind: fw.Alpha, Default: "9"},
		fw.Field{Name: FieldRecordCount, Length: 9, Kind: fw.Numeric},
		fw.Field{Name: FieldTotalDeductible, Length: 13, Kind: fw.SignedAmount},
		fw.Field{Name: FieldTotalOOP, Length: 13, Kind: fw.SignedAmount},
		fw.Field{Length: 264, Kind: fw.Filler},
	),
}

var registry = map[string]Format{
	ESI.Name: ESI,
	UHC.Name: UHC,
}

// Lookup returns the format registered for a payer code.
func Lookup(payerCode string) (Format, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(payerCode))]
	if !ok {
		return Format{}, fmt.Errorf("%w: %q", ErrUnknownFormat, payerCode)
	}
	return f, nil
}
