package domain

// Employee is a campaign target, looked up by its unique email address.
type Employee struct {
	ID    int64  `json:"id" db:"id"`
	Email string `json:"email" db:"email"`
}
