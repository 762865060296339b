package patient

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// Patient is the master patient index record. The raw national id card
// number is never stored; only its hash and the EMPI code derived from it.
type Patient struct {
	ID                 uuid.UUID  `db:"patient_id" json:"patient_id"`
	EMPICode           string     `db:"empi_code" json:"empi_code"`
	Name               string     `db:"name" json:"name"`
	Gender             string     `db:"gender" json:"gender"`
	BirthDate          *time.Time `db:"birth_date" json:"birth_date,omitempty"`
	IDCardHash         *string    `db:"id_card_hash" json:"-"`
	MedicalInsuranceID *string    `db:"medical_insurance_id" json:"medical_insurance_id,omitempty"`
	BloodType          *string    `db:"blood_type" json:"blood_type,omitempty"`
	AllergyHistory     *string    `db:"allergy_history" json:"allergy_history,omitempty"`
	ChronicDiseases    *string    `db:"chronic_diseases" json:"chronic_diseases,omitempty"`
	EmergencyContact   *string    `db:"emergency_contact" json:"emergency_contact,omitempty"`
	EmergencyPhone     *string    `db:"emergency_phone" json:"emergency_phone,omitempty"`
	Phone              *string    `db:"phone" json:"phone,omitempty"`
	Email              *string    `db:"email" json:"email,omitempty"`
	Address            *string    `db:"address" json:"address,omitempty"`
	IsActive           bool       `db:"is_active" json:"is_active"`
	CreatedAt          time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt          time.Time  `db:"updated_at" json:"updated_at"`
}

const empiSalt = "_MEDICAL_SALT_2024"

// GenerateEMPI derives the enterprise master patient index code from a
// national id card number. The same id card always maps to the same code,
// so repeat registrations of one person converge on one record.
func GenerateEMPI(idCard string) string {
	sum := sha256.Sum256([]byte(idCard + empiSalt))
	return "EMP" + hex.EncodeToString(sum[:])[:20]
}

// HashIDCard returns the lookup hash stored in place of the raw id card.
func HashIDCard(idCard string) string {
	sum := sha256.Sum256([]byte(idCard))
	return hex.EncodeToString(sum[:])
}
