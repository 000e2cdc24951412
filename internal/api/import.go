package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"github.com/shivamkjha23-afk/ATR2026/internal/identity"
	"github.com/shivamkjha23-afk/ATR2026/internal/middleware"
	"github.com/shivamkjha23-afk/ATR2026/internal/models"
)

// ImportWorkbook bulk-loads inspections or users from an uploaded Excel
// sheet. Headers are matched loosely (case and punctuation insensitive) and
// the whole sheet lands in one BatchUpsert, so an import is a single runtime
// database replace. Admin only.
func (h *Handlers) ImportWorkbook(c *gin.Context) {
	actor := middleware.ActingUser(c)
	if !h.store.IsAdmin(actor) {
		c.JSON(http.StatusForbidden, gin.H{"error": "admin access only"})
		return
	}

	collection := c.DefaultPostForm("collection", models.CollectionInspections)
	if collection != models.CollectionInspections && collection != models.CollectionUsers {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("collection %q cannot be imported", collection)})
		return
	}

	file, _, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file form field is required: " + err.Error()})
		return
	}
	defer file.Close()

	workbook, err := excelize.OpenReader(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid workbook: " + err.Error()})
		return
	}
	defer workbook.Close()

	sheets := workbook.GetSheetList()
	if len(sheets) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "workbook has no sheets"})
		return
	}
	rows, err := workbook.GetRows(sheets[0])
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "read sheet: " + err.Error()})
		return
	}

	payloads := rowsToRecords(collection, rows)
	count, err := h.store.BatchUpsert(collection, payloads, actor)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// rowsToRecords maps sheet rows onto record payloads using the first row as
// headers. Unrecognized columns are ignored; for users the username is
// normalized and unapproved by default.
func rowsToRecords(collection string, rows [][]string) []models.Record {
	if len(rows) < 2 {
		return nil
	}

	fieldByColumn := map[int]string{}
	for i, header := range rows[0] {
		if field := matchField(collection, header); field != "" {
			fieldByColumn[i] = field
		}
	}

	var payloads []models.Record
	for _, row := range rows[1:] {
		payload := models.Record{}
		for i, cell := range row {
			field, ok := fieldByColumn[i]
			if !ok {
				continue
			}
			payload[field] = strings.TrimSpace(cell)
		}
		if len(payload) == 0 {
			continue
		}
		if collection == models.CollectionUsers {
			username := identity.NormalizeUsername(payload.String(models.FieldUsername))
			if username == "" {
				continue
			}
			payload[models.FieldUsername] = username
			if _, ok := payload[models.FieldApproved]; !ok {
				payload[models.FieldApproved] = false
			}
			if payload.String(models.FieldRole) == "" {
				payload[models.FieldRole] = models.RoleInspector
			}
		}
		payloads = append(payloads, payload)
	}
	return payloads
}

// matchField resolves a sheet header to a record field, tolerating case,
// spacing and punctuation differences.
func matchField(collection string, header string) string {
	normalized := normalizeHeader(header)
	if normalized == "" {
		return ""
	}

	fields := models.InspectionFormFields
	if collection == models.CollectionUsers {
		fields = []string{models.FieldUsername, models.FieldRole, models.FieldApproved, models.FieldApprovedBy}
	}
	for _, field := range fields {
		if normalizeHeader(field) == normalized {
			return field
		}
	}
	return ""
}

func normalizeHeader(value string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}
