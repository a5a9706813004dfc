package repository

import (
	"errors"
	"reflect"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestApproveManyRollsBackOnHistoryFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quotations").WillReturnRows(
		sqlmock.NewRows([]string{"quotation_id", "supplier_id"}).
			AddRow(1, 10).
			AddRow(3, 20))
	mock.ExpectExec("UPDATE quote_items").WillReturnResult(sqlmock.NewResult(0, 4))
	mock.ExpectExec("INSERT INTO price_history").WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	result, err := ApproveMany(db, []int{1, 3})
	if err == nil {
		t.Fatal("ApproveMany succeeded despite history insert failure")
	}
	if result != nil {
		t.Errorf("result = %+v, want nil on rollback", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("status and price updates were not rolled back: %v", err)
	}
}

func TestApproveManyReportsOnlyEligibleIDs(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	defer db.Close()

	// Quotation 2 is cancelled: the status re-filter drops it, so it must
	// appear in neither the count nor the approved ids.
	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quotations").WillReturnRows(
		sqlmock.NewRows([]string{"quotation_id", "supplier_id"}).
			AddRow(1, 10).
			AddRow(3, 10))
	mock.ExpectExec("UPDATE quote_items").WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectExec("INSERT INTO price_history").WillReturnResult(sqlmock.NewResult(0, 6))
	mock.ExpectQuery("SELECT name FROM suppliers").WillReturnRows(
		sqlmock.NewRows([]string{"name"}).AddRow("Fresh Foods Ltd"))
	mock.ExpectCommit()

	result, err := ApproveMany(db, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("ApproveMany() error = %v", err)
	}
	if result.ApprovedCount != 2 {
		t.Errorf("ApprovedCount = %d, want 2", result.ApprovedCount)
	}
	if want := []int{1, 3}; !reflect.DeepEqual(result.ApprovedIDs, want) {
		t.Errorf("ApprovedIDs = %v, want %v", result.ApprovedIDs, want)
	}
	if want := []string{"Fresh Foods Ltd"}; !reflect.DeepEqual(result.AffectedSuppliers, want) {
		t.Errorf("AffectedSuppliers = %v, want %v", result.AffectedSuppliers, want)
	}
	// The ordered expectations above also pin the supplier-name lookup to
	// the transaction: it runs before the commit, never after.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestApproveManyNoEligibleQuotations(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectQuery("UPDATE quotations").WillReturnRows(
		sqlmock.NewRows([]string{"quotation_id", "supplier_id"}))
	mock.ExpectRollback()

	_, err = ApproveMany(db, []int{2})
	if !IsKind(err, KindEmptyResultSet) {
		t.Errorf("error kind = %q, want empty_result_set", KindOf(err))
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestActiveQuotationRef(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to open mock db: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery("SELECT reference FROM quotations").WillReturnRows(
		sqlmock.NewRows([]string{"reference"}).AddRow("Q-AB12345"))

	ref, taken, err := ActiveQuotationRef(db, 10, "2024-06", "North")
	if err != nil {
		t.Fatalf("ActiveQuotationRef() error = %v", err)
	}
	if !taken || ref != "Q-AB12345" {
		t.Errorf("got (%q, %v), want slot taken by Q-AB12345", ref, taken)
	}

	mock.ExpectQuery("SELECT reference FROM quotations").WillReturnRows(
		sqlmock.NewRows([]string{"reference"}))

	ref, taken, err = ActiveQuotationRef(db, 10, "2024-07", "North")
	if err != nil {
		t.Fatalf("ActiveQuotationRef() error = %v", err)
	}
	if taken || ref != "" {
		t.Errorf("got (%q, %v), want free slot", ref, taken)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}
