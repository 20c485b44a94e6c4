package repository

import (
	"context"
	"strings"

	"staffdesk/internal/dto"
	"staffdesk/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// employeeColumns maps sortable/updatable field names onto SQL columns.
var employeeColumns = map[string]string{
	"name":         "name",
	"age":          "age",
	"class":        "class",
	"subject":      "subject",
	"attendance":   "attendance",
	"email":        "email",
	"passwordHash": "password_hash",
	"createdAt":    "created_at",
}

func employeeColumn(field string) string { return employeeColumns[field] }

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

type employeeRepo struct{ db *gorm.DB }

func NewEmployeeRepository(db *gorm.DB) EmployeeRepository { return &employeeRepo{db: db} }

func (r *employeeRepo) Create(ctx context.Context, e *model.Employee) error {
	return translate(r.db.WithContext(ctx).Create(e).Error)
}

func (r *employeeRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *employeeRepo) FindByEmail(ctx context.Context, email string) (*model.Employee, error) {
	var e model.Employee
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&e).Error; err != nil {
		return nil, translate(err)
	}
	return &e, nil
}

func (r *employeeRepo) List(ctx context.Context, q dto.EmployeeQuery) ([]model.Employee, int64, error) {
	var employees []model.Employee
	var total int64

	tx := r.db.WithContext(ctx).Model(&model.Employee{})
	if q.Name != "" {
		// case-insensitive substring; user input is matched literally
		tx = tx.Where(`LOWER(name) LIKE ? ESCAPE '\'`, "%"+likeEscaper.Replace(strings.ToLower(q.Name))+"%")
	}
	if q.Class != "" {
		tx = tx.Where(map[string]interface{}{"class": q.Class})
	}
	if q.Subject != "" {
		tx = tx.Where(map[string]interface{}{"subject": q.Subject})
	}

	if err := tx.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	col := employeeColumn(q.SortBy)
	if col == "" {
		col = "created_at"
	}
	err := tx.
		Order(clause.OrderByColumn{Column: clause.Column{Name: col}, Desc: q.Desc}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: q.Desc}).
		Limit(q.Limit).Offset(q.Offset()).
		Find(&employees).Error
	return employees, total, err
}

func (r *employeeRepo) Update(ctx context.Context, id uuid.UUID, ch EmployeeChanges) (*model.Employee, error) {
	res := r.db.WithContext(ctx).Model(&model.Employee{}).Where("id = ?", id).Updates(ch.fields(employeeColumn))
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return r.FindByID(ctx, id)
}

func (r *employeeRepo) Delete(ctx context.Context, id uuid.UUID) (*model.Employee, error) {
	e, err := r.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	res := r.db.WithContext(ctx).Delete(&model.Employee{}, "id = ?", id)
	if res.Error != nil {
		return nil, translate(res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return e, nil
}
