package domain

import (
	"encoding/json"
	"testing"

	dErrors "qualify/pkg/domain-errors"
)

// FuzzParseRecordID feeds path parameters straight into the parser. Accepted
// input must be a canonical non-nil UUID; everything else is invalid_input.
func FuzzParseRecordID(f *testing.F) {
	for _, seed := range []string{
		"",
		"7d3c8a4e-1f2b-4c5d-9e8f-0a1b2c3d4e5f",
		"{7d3c8a4e-1f2b-4c5d-9e8f-0a1b2c3d4e5f}",
		"urn:uuid:7d3c8a4e-1f2b-4c5d-9e8f-0a1b2c3d4e5f",
		"00000000-0000-0000-0000-000000000000",
		"SOP-014",
		"../../admin/audit",
		"7d3c8a4e-1f2b-4c5d-9e8f-0a1b2c3d4e5f\x00",
	} {
		f.Add(seed)
	}

	f.Fuzz(func(t *testing.T, input string) {
		recordID, err := ParseRecordID(input)
		if err != nil {
			if code := dErrors.CodeOf(err); code != dErrors.CodeInvalidInput {
				t.Fatalf("rejection must be invalid_input, got %s", code)
			}
			return
		}
		if recordID.IsNil() {
			t.Fatal("nil record ID was accepted")
		}
		again, err := ParseRecordID(recordID.String())
		if err != nil || again != recordID {
			t.Fatalf("canonical form %q does not round-trip", recordID.String())
		}
	})
}

// FuzzIDsAgree checks that every ID kind accepts the same inputs and that
// JSON decoding matches the parser.
func FuzzIDsAgree(f *testing.F) {
	f.Add("7d3c8a4e-1f2b-4c5d-9e8f-0a1b2c3d4e5f")
	f.Add("not-an-id")
	f.Add("")

	f.Fuzz(func(t *testing.T, input string) {
		_, errUser := ParseUserID(input)
		_, errTraining := ParseTrainingID(input)
		_, errMaster := ParseMasterID(input)
		_, errAssessment := ParseAssessmentID(input)
		_, errSignature := ParseSignatureID(input)

		accepted := errUser == nil
		for _, err := range []error{errTraining, errMaster, errAssessment, errSignature} {
			if (err == nil) != accepted {
				t.Fatalf("ID kinds disagree on %q", input)
			}
		}

		raw, err := json.Marshal(input)
		if err != nil {
			t.Skip()
		}
		var decoded TrainingID
		if decErr := json.Unmarshal(raw, &decoded); (decErr == nil) != accepted {
			t.Fatalf("JSON decoding disagrees with ParseTrainingID on %q", input)
		}
	})
}
