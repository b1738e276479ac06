package repository

import (
	"entgo.io/ent/dialect/sql/schema"
	"entgo.io/ent/schema/field"
)

const (
	companiesTable    = "companies"
	ownersTable       = "owners"
	filesTable        = "uploaded_files"
	movementsTable    = "movements"
	creditsTable      = "credits"
	certificatesTable = "certificates"
)

var (
	// CompaniesColumns holds the columns for the "companies" table.
	CompaniesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "rut", Type: field.TypeString, Size: 16},
		{Name: "rut_key", Type: field.TypeString, Unique: true, Size: 16},
		{Name: "business_name", Type: field.TypeString, Size: 255},
		{Name: "created_at", Type: field.TypeTime},
	}
	// CompaniesTable holds the schema information for the "companies" table.
	CompaniesTable = &schema.Table{
		Name:       companiesTable,
		Columns:    CompaniesColumns,
		PrimaryKey: []*schema.Column{CompaniesColumns[0]},
	}

	// OwnersColumns holds the columns for the "owners" table.
	OwnersColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "company_id", Type: field.TypeUUID},
		{Name: "rut", Type: field.TypeString, Size: 16},
		{Name: "rut_key", Type: field.TypeString, Size: 16},
		{Name: "name", Type: field.TypeString, Nullable: true, Size: 255},
		{Name: "created_at", Type: field.TypeTime},
	}
	// OwnersTable holds the schema information for the "owners" table.
	OwnersTable = &schema.Table{
		Name:       ownersTable,
		Columns:    OwnersColumns,
		PrimaryKey: []*schema.Column{OwnersColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "owners_companies_owners",
				Columns:    []*schema.Column{OwnersColumns[1]},
				RefColumns: []*schema.Column{CompaniesColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "owner_company_id_rut_key",
				Unique:  true,
				Columns: []*schema.Column{OwnersColumns[1], OwnersColumns[3]},
			},
		},
	}

	// UploadedFilesColumns holds the columns for the "uploaded_files" table.
	UploadedFilesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "source_path", Type: field.TypeString, Size: 1024},
		{Name: "filename", Type: field.TypeString, Size: 255},
		{Name: "format", Type: field.TypeString, Size: 8},
		{Name: "file_size", Type: field.TypeInt},
		{Name: "content_hash", Type: field.TypeBytes, Unique: true},
		{Name: "metadata", Type: field.TypeJSON, Nullable: true},
		{Name: "uploaded_at", Type: field.TypeTime},
	}
	// UploadedFilesTable holds the schema information for the "uploaded_files" table.
	UploadedFilesTable = &schema.Table{
		Name:       filesTable,
		Columns:    UploadedFilesColumns,
		PrimaryKey: []*schema.Column{UploadedFilesColumns[0]},
	}

	// MovementsColumns holds the columns for the "movements" table.
	MovementsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "company_id", Type: field.TypeUUID},
		{Name: "owner_id", Type: field.TypeUUID},
		{Name: "source_file_id", Type: field.TypeUUID, Nullable: true},
		{Name: "date", Type: field.TypeTime},
		{Name: "type", Type: field.TypeString, Size: 16},
		{Name: "historical_amount", Type: field.TypeInt64},
		{Name: "adjusted_amount", Type: field.TypeInt64, Nullable: true},
		{Name: "attribution_code", Type: field.TypeString, Nullable: true, Size: 32},
		{Name: "status", Type: field.TypeString, Size: 16, Default: "vigente"},
		{Name: "created_at", Type: field.TypeTime},
	}
	// MovementsTable holds the schema information for the "movements" table.
	MovementsTable = &schema.Table{
		Name:       movementsTable,
		Columns:    MovementsColumns,
		PrimaryKey: []*schema.Column{MovementsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "movements_companies_movements",
				Columns:    []*schema.Column{MovementsColumns[1]},
				RefColumns: []*schema.Column{CompaniesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "movements_owners_movements",
				Columns:    []*schema.Column{MovementsColumns[2]},
				RefColumns: []*schema.Column{OwnersColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "movements_uploaded_files_movements",
				Columns:    []*schema.Column{MovementsColumns[3]},
				RefColumns: []*schema.Column{UploadedFilesColumns[0]},
				OnDelete:   schema.SetNull,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "movement_company_id_owner_id_date",
				Unique:  false,
				Columns: []*schema.Column{MovementsColumns[1], MovementsColumns[2], MovementsColumns[4]},
			},
		},
	}

	// CreditsColumns holds the columns for the "credits" table.
	CreditsColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "movement_id", Type: field.TypeUUID},
		{Name: "type", Type: field.TypeString, Nullable: true, Size: 128},
		{Name: "amount", Type: field.TypeInt64},
		{Name: "year", Type: field.TypeInt, Nullable: true},
	}
	// CreditsTable holds the schema information for the "credits" table.
	CreditsTable = &schema.Table{
		Name:       creditsTable,
		Columns:    CreditsColumns,
		PrimaryKey: []*schema.Column{CreditsColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "credits_movements_credits",
				Columns:    []*schema.Column{CreditsColumns[1]},
				RefColumns: []*schema.Column{MovementsColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
	}

	// CertificatesColumns holds the columns for the "certificates" table.
	CertificatesColumns = []*schema.Column{
		{Name: "id", Type: field.TypeUUID},
		{Name: "company_id", Type: field.TypeUUID},
		{Name: "owner_id", Type: field.TypeUUID},
		{Name: "year", Type: field.TypeInt},
		{Name: "folio", Type: field.TypeString, Size: 64},
		{Name: "totals", Type: field.TypeJSON},
		{Name: "details", Type: field.TypeJSON},
		{Name: "issued_at", Type: field.TypeTime},
	}
	// CertificatesTable holds the schema information for the "certificates" table.
	CertificatesTable = &schema.Table{
		Name:       certificatesTable,
		Columns:    CertificatesColumns,
		PrimaryKey: []*schema.Column{CertificatesColumns[0]},
		ForeignKeys: []*schema.ForeignKey{
			{
				Symbol:     "certificates_companies_certificates",
				Columns:    []*schema.Column{CertificatesColumns[1]},
				RefColumns: []*schema.Column{CompaniesColumns[0]},
				OnDelete:   schema.Cascade,
			},
			{
				Symbol:     "certificates_owners_certificates",
				Columns:    []*schema.Column{CertificatesColumns[2]},
				RefColumns: []*schema.Column{OwnersColumns[0]},
				OnDelete:   schema.Cascade,
			},
		},
		Indexes: []*schema.Index{
			{
				Name:    "certificate_company_id_owner_id_year",
				Unique:  true,
				Columns: []*schema.Column{CertificatesColumns[1], CertificatesColumns[2], CertificatesColumns[3]},
			},
		},
	}

	// Tables holds all the tables in the schema, parents first.
	Tables = []*schema.Table{
		CompaniesTable,
		OwnersTable,
		UploadedFilesTable,
		MovementsTable,
		CreditsTable,
		CertificatesTable,
	}
)

func init() {
	OwnersTable.ForeignKeys[0].RefTable = CompaniesTable
	MovementsTable.ForeignKeys[0].RefTable = CompaniesTable
	MovementsTable.ForeignKeys[1].RefTable = OwnersTable
	MovementsTable.ForeignKeys[2].RefTable = UploadedFilesTable
	CreditsTable.ForeignKeys[0].RefTable = MovementsTable
	CertificatesTable.ForeignKeys[0].RefTable = CompaniesTable
	CertificatesTable.ForeignKeys[1].RefTable = OwnersTable
}

func columnNames(cols []*schema.Column) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}
