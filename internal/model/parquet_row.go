package model

// VisitExportRow mirrors the Parquet schema of the agency visit export.
// Money fields are float64 matching the Parquet representation; they
// become decimals during normalization.
type VisitExportRow struct {
	ClinicianFirstName string   `parquet:"clinician_first_name"`
	ClinicianLastName  string   `parquet:"clinician_last_name"`
	PatientName        string   `parquet:"patient_name"`
	VisitType          string   `parquet:"visit_type"`
	VisitScheduledDate string   `parquet:"visit_scheduled_date"`
	AgencyName         string   `parquet:"ha_name"`
	AgreedPrice        *float64 `parquet:"agreed_price,optional"`
	InitialPrice       *float64 `parquet:"initial_price,optional"`
	VisitStatus        string   `parquet:"visit_status"`
	ApprovedDate       string   `parquet:"approved_date"`
}
