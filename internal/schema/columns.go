package schema

// Columns is the column order of the permit tracking import feed.
var Columns = []string{
	IDField,
	CreatedField,
	PermitTypeField,
	"applicationNumber",
	SideChannelIDField,
	"projectAddressNumber",
	"projectAddressNumberSuffix",
	"projectAddressStreetName",
	"projectAddressStreetType",
	"projectAddressUnitNumber",
	"projectAddressBlock",
	"projectAddressLot",
	"projectAddressZip",
	"applicantType",
	"applicantFirstName",
	"applicantLastName",
	"applicantPhoneNumber",
	"applicantEmail",
	"applicantAddress1",
	"applicantAddress2",
	"applicantCity",
	"applicantState",
	"applicantZipCode",
	"contractorLicenseNumber",
	"contractorState",
	"ownerName",
	"ownerPhoneNumber",
	"ownerEmail",
	"ownerAddress1",
	"ownerAddress2",
	"ownerCity",
	"ownerState",
	"ownerZipCode",
	"constructionLenderName",
	"constructionLenderBranchDesignation",
	"constructionLenderAddress1",
	"constructionLenderAddress2",
	"constructionLenderCity",
	"constructionLenderState",
	"constructionLenderZipCode",
	"existingBuildingPresentUse",
	"existingBuildingOccupancyClass",
	"existingBuildingConstructionType",
	"existingBuildingFireRating",
	"existingBuildingDwellingUnits",
	"existingBuildingStories",
	"existingBuildingBasements",
	"proposedUse",
	"occupancyClass",
	"typeOfConstruction",
	"proposedFireRating",
	"proposedDwellingUnits",
	"proposedStories",
	"proposedBasements",
	"estimatedCostOfProject",
	"projectDescription",
	SitePermitField,
	"historicBuilding",
	"planningApproval",
	"housingUnitsAdded",
	"requiredUploads",
	"optionalUploads",
}

// NewConstructionDiscriminant is non-empty only on new construction
// applications, whose "new" field group replaces the "proposed" one.
const NewConstructionDiscriminant = "newBuildingUse"

// NewToProposed pairs each new construction field with the proposed field
// it stands in for.
var NewToProposed = []Relabel{
	{From: "newBuildingUse", To: "proposedUse"},
	{From: "newOccupancyClass", To: "occupancyClass"},
	{From: "newTypeOfConstruction", To: "typeOfConstruction"},
	{From: "newDwellingUnits", To: "proposedDwellingUnits"},
	{From: "newStories", To: "proposedStories"},
	{From: "newBasements", To: "proposedBasements"},
}

// SitePermitField is the unified site permit flag; SitePermitSources are
// the two form questions it is derived from.
const SitePermitField = "sitePermit"

var SitePermitSources = []string{"sitePermitForm12", "sitePermitForm38"}

// YesNoFields are normalized to Y, N or empty.
var YesNoFields = []string{
	"historicBuilding",
	"planningApproval",
	"housingUnitsAdded",
}

// AcceptedFields returns the fields that survive the import pre-pass: every
// output column plus the fields relabelled into one.
func AcceptedFields() map[string]bool {
	out := make(map[string]bool, len(Columns)+len(Relabels))
	for _, c := range Columns {
		out[c] = true
	}
	for _, r := range Relabels {
		out[r.From] = true
	}
	return out
}
