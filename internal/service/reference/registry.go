// Package reference serves the allow-listed reference tables behind the
// /data endpoints.
package reference

import (
	"fmt"

	"cm-admin/internal/domain"
)

func table(name string) domain.TableRef {
	return domain.TableRef{Schema: "cm_data", Name: name}
}

func bapTables() []domain.ReferenceTable {
	out := make([]domain.ReferenceTable, 0, domain.TCPCount)
	for n := 1; n <= domain.TCPCount; n++ {
		out = append(out, domain.ReferenceTable{
			Key:     fmt.Sprintf("bap_tcp%d", n),
			Title:   fmt.Sprintf("BAP TCP %d", n),
			Table:   table(fmt.Sprintf("t_telit_next_carrier_list_bap_tcp%d", n)),
			Columns: []string{"country", "mcc", "active", "imsi_donor"},
		})
	}
	return out
}

// DefaultTables is the reference table registry. Only the first three are
// editable from the UI.
func DefaultTables() []domain.ReferenceTable {
	eprofile := []string{"plmno", "mcc_mnc", "region", "country", "operator", "pz", "2g", "3g", "4g", "cat_m", "nb_iot", "comments"}
	tables := []domain.ReferenceTable{
		{
			Key:      "operator_info",
			Title:    "Operator Info",
			Table:    table("t_operator_info"),
			Columns:  []string{"plmno_code", "mcc_mnc", "region", "country", "operator_name", "country_code", "mgt"},
			OrderBy:  "plmno_code",
			Editable: true,
		},
		{
			Key:      "2g_3g_sunset",
			Title:    "2G/3G Sunset",
			Table:    table("t_2g_3g_sunset"),
			Columns:  []string{"plmno_code", "country_name", "operator_name", "sunset_2g", "sunset_3g"},
			Editable: true,
		},
		{
			Key:      "countries_roaming_prohibited",
			Title:    "Countries Roaming Prohibited",
			Table:    table("t_countries_roaming_prohibited"),
			Columns:  []string{"country_name", "price_zone"},
			OrderBy:  "country_name",
			Editable: true,
		},
		{
			Key:   "iot_launches_and_steering",
			Title: "IoT Launches and Steering",
			Table: table("t_iot_launches_and_steering"),
			Columns: []string{
				"region", "country", "operator", "mgt_cc_nc", "mcc_mnc", "tadig_code",
				"gsm_date_outbound", "gprs_date_outbound", "umts_date_outbound", "camel_date_outbound",
				"lte_date_outbound", "5g_nsa_date_outbound", "volte_date_outbound", "lte_m_date_outbound",
				"nb_iot_date_outbound", "nrtrde_date_outbound", "steering", "comment",
				"psm_sup_lte_m", "edrx_sup_lte_m", "psm_sup_nbiot", "edrx_sup_nbiot",
			},
		},
		{
			Key:     "next_tcps",
			Title:   "Next TCPs",
			Table:   table("t_next_tcps"),
			Columns: []string{"tcp_name"},
		},
		{
			Key:     "pz_cut_off_points",
			Title:   "Price Zone Cut-off Points",
			Table:   table("t_pz_cut_off_points"),
			Columns: []string{"tcp_id", "price_zone", "cut_off_point"},
		},
		{Key: "eprofile_4", Title: "eProfile 4", Table: table("t_eprofile_4"), Columns: eprofile},
		{Key: "eprofile_5", Title: "eProfile 5", Table: table("t_eprofile_5"), Columns: eprofile},
	}
	return append(tables, bapTables()...)
}
