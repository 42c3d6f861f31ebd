package coppersync

import (
	"context"
	"fmt"
	"strconv"

	"bitbucket.org/mmdatafocus/salesops_backend/config"
	"bitbucket.org/mmdatafocus/salesops_backend/models"
)

// CustomersResult is the outcome of one ERP→CRM pass.
type CustomersResult struct {
	Stats   models.SyncStats
	Changes []ChangeDetail
}

// ReconcileCustomers runs Direction B: ERP customers are matched to Copper
// companies by account number first and composite name+address key second.
// This is the only direction that writes to Copper: it backfills missing
// account numbers, marks matched companies active, and (when createMissing
// is set) creates companies for unmatched ERP customers. A composite match
// against a company that already carries an account number backfills the
// customer instead. Empty ERP fields never clear CRM fields.
func ReconcileCustomers(ctx context.Context, api CopperAPI, run *models.SyncRun, createMissing bool) (*CustomersResult, error) {
	result := &CustomersResult{}
	stats := &result.Stats
	errs := &syncErrors{}
	defer errs.persist(ctx, run)
	db := config.GetDB()
	logger := config.GetLogger()

	companies, err := api.ListCompanies(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing companies: %w", err)
	}
	companies = dedupeByAccountNumber(companies)

	byAccount := make(map[string]*Company)
	byComposite := make(map[string]*Company)
	for i := range companies {
		company := &companies[i]
		if account := company.AccountNumber(); account != "" {
			byAccount[account] = company
		}
		// A company with no usable name or address yields an empty key and
		// must not become a match-all bucket.
		if key := companyCompositeKey(*company); key != "" {
			byComposite[key] = company
		}
	}

	customers, err := models.MapCustomersById(ctx)
	if err != nil {
		return nil, err
	}

	for _, customer := range customers {
		stats.Scanned++

		var company *Company
		compositeMatch := false
		if customer.AccountNumber != "" {
			company = byAccount[customer.AccountNumber]
		}
		if company == nil && customer.CompositeKey != "" {
			company = byComposite[customer.CompositeKey]
			compositeMatch = company != nil
		}

		if company == nil {
			if !createMissing {
				stats.Unmatched++
				continue
			}
			if err := createCompanyForCustomer(ctx, api, run, stats, result, customer); err != nil {
				errs.add(stats, "customer", customer.ID, "create_failed", err.Error(), true)
			}
			continue
		}

		fields := make(map[string]any)
		var customFields []CustomField

		// Backfill the account number onto the matched company.
		if company.AccountNumber() == "" && customer.AccountNumber != "" {
			customFields = append(customFields, CustomField{
				CustomFieldDefinitionID: fieldAccountOrderID,
				Value:                   customer.AccountNumber,
			})
			result.Changes = append(result.Changes, ChangeDetail{
				EntityID: strconv.FormatInt(company.ID, 10),
				Field:    "accountNumber",
				OldValue: "",
				NewValue: customer.AccountNumber,
			})
			stats.Backfilled++
		}

		// The reverse backfill: a composite match to a company that already
		// carries an account number links a duplicate, so the number flows
		// back onto the customer.
		if compositeMatch && customer.AccountNumber == "" && company.AccountNumber() != "" {
			result.Changes = append(result.Changes, ChangeDetail{
				EntityID: customer.ID,
				Field:    "accountNumber",
				OldValue: "",
				NewValue: company.AccountNumber(),
			})
			stats.Backfilled++
			if !run.DryRun {
				err := db.WithContext(ctx).Model(&models.Customer{}).
					Where("id = ?", customer.ID).
					Updates(map[string]any{
						"account_number":      company.AccountNumber(),
						"account_type_source": models.AccountTypeSourceCrmDuplicateLink,
					}).Error
				if err != nil {
					errs.add(stats, "customer", customer.ID, "update_failed", err.Error(), true)
				}
			}
		}

		// A customer present in ERP exports is, by definition, active.
		if !company.IsActive() {
			customFields = append(customFields, CustomField{
				CustomFieldDefinitionID: fieldActive,
				Value:                   true,
			})
			result.Changes = append(result.Changes, ChangeDetail{
				EntityID: strconv.FormatInt(company.ID, 10),
				Field:    "active",
				OldValue: "false",
				NewValue: "true",
			})
		}

		if len(customFields) == 0 {
			stats.Skipped++
		} else {
			fields["custom_fields"] = customFields
			if !run.DryRun {
				if err := api.UpdateCompany(ctx, company.ID, fields); err != nil {
					errs.add(stats, "company", strconv.FormatInt(company.ID, 10),
						"update_failed", err.Error(), true)
					continue
				}
			}
			stats.Updated++
		}

		// Record the CRM linkage on the ERP side; not a CRM write.
		if customer.CrmCompanyId != company.ID && !run.DryRun {
			err := db.WithContext(ctx).Model(&models.Customer{}).
				Where("id = ?", customer.ID).
				Update("crm_company_id", company.ID).Error
			if err != nil {
				config.LogError(logger, "customers.go", "ReconcileCustomers", "saving crm linkage", customer.ID, err)
			}
		}
	}

	return result, nil
}

func createCompanyForCustomer(ctx context.Context, api CopperAPI, run *models.SyncRun, stats *models.SyncStats, result *CustomersResult, customer *models.Customer) error {
	payload := map[string]any{
		"name": customer.Name,
	}
	// Only non-empty ERP fields travel to Copper.
	address := map[string]string{}
	if customer.Street != "" {
		address["street"] = customer.Street
	}
	if customer.City != "" {
		address["city"] = customer.City
	}
	if customer.State != "" {
		address["state"] = customer.State
	}
	if customer.PostalCode != "" {
		address["postal_code"] = customer.PostalCode
	}
	if len(address) > 0 {
		payload["address"] = address
	}
	if customer.Phone != "" {
		payload["phone_numbers"] = []map[string]string{{"number": customer.Phone, "category": "work"}}
	}

	customFields := []CustomField{
		{CustomFieldDefinitionID: fieldActive, Value: true},
	}
	if customer.AccountNumber != "" {
		customFields = append(customFields, CustomField{
			CustomFieldDefinitionID: fieldAccountOrderID,
			Value:                   customer.AccountNumber,
		})
	}
	payload["custom_fields"] = customFields

	result.Changes = append(result.Changes, ChangeDetail{
		EntityID: customer.ID,
		Field:    "company",
		OldValue: "",
		NewValue: customer.Name,
	})

	if run.DryRun {
		stats.Created++
		return nil
	}

	company, err := api.CreateCompany(ctx, payload)
	if err != nil {
		return err
	}
	stats.Created++

	db := config.GetDB()
	return db.WithContext(ctx).Model(&models.Customer{}).
		Where("id = ?", customer.ID).
		Update("crm_company_id", company.ID).Error
}
