package schema

import "strings"

// Envelope fields injected into every flat record.
const (
	IDField      = "id"
	CreatedField = "created"
)

// PermitTypeField holds the application's permit type.
const PermitTypeField = "permitType"

// Side-channel document upload status, set by the plan review integration.
const (
	SideChannelStatusField = "bluebeamStatus"
	SideChannelErrorField  = "bluebeamError"
	SideChannelIDField     = "bluebeamId"
	SideChannelFailed      = "Failed"
)

// ExcludedFields are form controls and signatures that never leave the
// forms system.
var ExcludedFields = map[string]bool{
	"submit":                        true,
	"signature":                     true,
	"applicantSignature":            true,
	"certification":                 true,
	"reviewPage":                    true,
	"actionState":                   true,
	SideChannelStatusField:          true,
	SideChannelErrorField:           true,
	"optionalUploadsHtml":           true,
	"acknowledgeUploadRequirements": true,
}

// AddressFields maps structured address fields to the prefix of the
// columns they expand into.
var AddressFields = map[string]string{
	"applicantAddress":          "applicant",
	"ownerAddress":              "owner",
	"constructionLenderAddress": "constructionLender",
}

// AddressParts maps address sub-keys to column suffixes, in output order.
var AddressParts = []struct {
	Key    string
	Suffix string
}{
	{"line1", "Address1"},
	{"line2", "Address2"},
	{"city", "City"},
	{"state", "State"},
	{"zip", "ZipCode"},
}

// OtherSuffix names the free-text companion of a building use field.
const OtherSuffix = "Other"

// FireRatingFields maps construction type fields to the fire rating field
// derived from them.
var FireRatingFields = map[string]string{
	"existingBuildingConstructionType": "existingBuildingFireRating",
	"typeOfConstruction":               "proposedFireRating",
	"newTypeOfConstruction":            "newFireRating",
}

// Relabel is a field renamed after formatting.
type Relabel struct {
	From string
	To   string
}

// Relabels are applied in order once all fields are formatted.
var Relabels = []Relabel{
	{From: "Page2State", To: "contractorState"},
	{From: "buildingPermitApplicationNumber", To: "applicationNumber"},
}

// UploadFields hold the file lists linked from the reconciliation summary.
var UploadFields = []string{"requiredUploads", "optionalUploads"}

// IsResubmission reports whether permitType marks an application that
// revises an existing permit and is not exported as a new one.
func IsResubmission(permitType string) bool {
	pt := strings.ToLower(strings.TrimSpace(permitType))
	return pt == "existingpermitapplication" || strings.Contains(pt, "resubmission")
}

// IsSideChannelFailure reports whether status marks a failed plan review
// upload.
func IsSideChannelFailure(status string) bool {
	return strings.EqualFold(strings.TrimSpace(status), SideChannelFailed)
}
