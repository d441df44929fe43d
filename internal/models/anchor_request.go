package models

import (
	"errors"
	"fmt"

	"github.com/CHIRANJEEVICHETAN/EcoTrack-sub000/blockchain/types"
)

// AnchorKind selects which contract write an AnchorRequest becomes
type AnchorKind string

const (
	KindWasteItem AnchorKind = "waste_item"
	KindVendor    AnchorKind = "vendor"
)

// AnchorRequest defines the message structure for anchoring requests
// Used across gateway, processing, and messaging layers
type AnchorRequest struct {
	RequestID         string                      `json:"RequestID"`
	Kind              AnchorKind                  `json:"Kind"`
	SubjectID         string                      `json:"SubjectID"` // Submission id or vendor id, also the partition key
	WasteItem         *types.WasteItemFingerprint `json:"WasteItem,omitempty"`
	Vendor            *types.VendorCertification  `json:"Vendor,omitempty"`
	ReceivedTimestamp string                      `json:"ReceivedTimestamp"` // Use string for easy JSON serialization
}

var errMissingPayload = errors.New("anchor request payload does not match its kind")

// Validate checks that the payload matches Kind and SubjectID
func (r *AnchorRequest) Validate() error {
	if r.RequestID == "" {
		return errors.New("anchor request has no request id")
	}
	switch r.Kind {
	case KindWasteItem:
		if r.WasteItem == nil || r.Vendor != nil {
			return errMissingPayload
		}
		if r.WasteItem.SubmissionID != r.SubjectID {
			return fmt.Errorf("subject id %q does not match submission id %q", r.SubjectID, r.WasteItem.SubmissionID)
		}
	case KindVendor:
		if r.Vendor == nil || r.WasteItem != nil {
			return errMissingPayload
		}
		if r.Vendor.VendorID != r.SubjectID {
			return fmt.Errorf("subject id %q does not match vendor id %q", r.SubjectID, r.Vendor.VendorID)
		}
	default:
		return fmt.Errorf("unknown anchor kind %q", r.Kind)
	}
	return nil
}
