package repository

import (
	"fmt"
	"strings"
)

// masterListArgs are the source indexes bound as $1..$8 of the master-list
// query, in that order.
var masterListArgs = []int{1, 2, 3, 4, 5, 6, 7, 8}

// masterListFuncs lists the cm_data.f_master_list_* functions with their
// argument placeholders. Every function shares the same leading five.
var masterListFuncs = []struct {
	cte, fn, args string
}{
	{"master_list_coverage", "f_master_list_coverage", "$4, $6, $2, $1, $8"},
	{"master_list_technologies", "f_master_list_technologies", "$4, $6, $2, $1, $8, $5, $7"},
	{"master_list_prices", "f_master_list_prices", "$4, $6, $2, $1, $8, $3"},
	{"master_list_price_zones", "f_master_list_price_zones", "$4, $6, $2, $1, $8, $3"},
	{"master_list_profile_1", "f_master_list_profile_1", "$4, $6, $2, $1, $8, $3"},
	{"master_list_profile_2", "f_master_list_profile_2", "$4, $6, $2, $1, $8, $3"},
	{"master_list_profile_3", "f_master_list_profile_3", "$4, $6, $2, $1, $8, $3"},
	{"master_list_profile_4", "f_master_list_profile_4", "$4, $6, $2, $1, $8, $3"},
	{"master_list_profile_5", "f_master_list_profile_5", "$4, $6, $2, $1, $8, $3"},
	{"master_list_comments", "f_master_list_comments", "$4, $6, $2, $1, $8, $3"},
}

// masterDataColumns is the column list of cm_data.t_master_data minus its
// keys, in the order the master list is reported.
var masterDataColumns = []string{
	"plmno_code", "mcc_mnc", "region", "country", "operator_name", "country_code", "mgt",
	"sparkle_coverage", "hot_coverage", "tele2_coverage", "bics_coverage",
	"sparkle_2g", "sparkle_3g", "sparkle_4g",
	"hot_2g", "hot_3g", "hot_4g",
	"tele2_2g", "tele2_3g", "tele2_4g",
	"bics_2g", "bics_3g", "bics_4g",
	"eprofile_3_tim", "hot_zone", "eprofile_2_tele2", "eprofile_1_bics",
	"tim_data_per_mb", "tim_sms_mo", "tim_voice_mo", "tim_voice_mt",
	"hot_data", "hot_sms", "hot_moc", "hot_mtc",
	"tele2_data", "tele2_sms_mo", "tele2_voice_mo", "tele2_voice_mt",
	"bics_data", "bics_sms", "bics_voice_mo", "bics_voice_mt",
	"imsi_donor_tcp1", "profile1_pz", "profile1_price", "profile1_broadband",
	"imsi_donor_tcp2", "profile2_pz", "profile2_price", "profile2_broadband",
	"imsi_donor_tcp3", "profile3_pz", "profile3_price", "profile3_broadband",
	"imsi_donor_tcp4", "profile4_pz", "profile4_price", "profile4_broadband",
	"imsi_donor_tcp5", "profile5_pz", "profile5_price", "profile5_broadband",
	"prr", "blocked_countries",
	"comments_profile_1", "comments_profile_2", "comments_profile_3", "comments_profile_4", "comments_profile_5",
}

const masterListSelect = `
SELECT DISTINCT
    t1.plmno_code, t1.mcc_mnc, t1.region, t1.country, t1.operator_name, t1.country_code, t1.mgt,
    t1.sparkle_coverage, t1.hot_coverage, t1.tele2_coverage, t1.bics_coverage,
    t2.sparkle_2g, t2.sparkle_3g, t2.sparkle_4g,
    t2.hot_2g_3g AS hot_2g, t2.hot_2g_3g AS hot_3g, t2.hot_4g,
    t2.tele2_2g, t2.tele2_3g, t2.tele2_4g,
    t2.bics_2g, t2.bics_3g, t2.bics_4g,
    t3.eprofile_3_tim, t3.hot_zone, t3.eprofile_2_tele2, t3.eprofile_1_bics,
    t4.tim_data_per_mb, t4.tim_sms_mo, t4.tim_voice_mo, t4.tim_voice_mt,
    t4.hot_data, t4.hot_sms, t4.hot_moc, t4.hot_mtc,
    t4.tele2_data, t4.tele2_sms_mo, t4.tele2_voice_mo, t4.tele2_voice_mt,
    t4.bics_data, t4.bics_sms, t4.bics_voice_mo, t4.bics_voice_mt,
    t5.imsi_donor_tcp1, t5.profile1_pz, t5.profile1_price, t5.profile1_broadband,
    t6.imsi_donor_tcp2, t6.profile2_pz, t6.profile2_price, t6.profile2_broadband,
    t7.imsi_donor_tcp3, t7.profile3_pz, t7.profile3_price, t7.profile3_broadband,
    t8.imsi_donor_tcp4, t8.profile4_pz, t8.profile4_price, t8.profile4_broadband,
    t9.imsi_donor_tcp5, t9.profile5_pz, t9.profile5_price, t9.profile5_broadband,
    t10.prr, t10.blocked_countries,
    t11.comments_profile_1, t11.comments_profile_2, t11.comments_profile_3,
    t11.comments_profile_4, t11.comments_profile_5
FROM master_list_coverage t1
JOIN master_list_technologies t2 ON t1.id = t2.id
JOIN master_list_price_zones t3 ON t1.id = t3.id
JOIN master_list_prices t4 ON t1.id = t4.id
JOIN master_list_profile_1 t5 ON t1.id = t5.id
JOIN master_list_profile_2 t6 ON t1.id = t6.id
JOIN master_list_profile_3 t7 ON t1.id = t7.id
JOIN master_list_profile_4 t8 ON t1.id = t8.id
JOIN master_list_profile_5 t9 ON t1.id = t9.id
JOIN cm_data.v_master_list_prr_and_blocked_countries t10 ON t1.id = t10.id
JOIN master_list_comments t11 ON t1.id = t11.id`

// masterListWith renders the WITH clause calling every master-list function.
func masterListWith() string {
	parts := make([]string, len(masterListFuncs))
	for i, f := range masterListFuncs {
		parts[i] = fmt.Sprintf("%s AS (SELECT * FROM cm_data.%s(%s))", f.cte, f.fn, f.args)
	}
	return "WITH " + strings.Join(parts, ",\n")
}

// masterListQuery returns the report query, parameterized by $1..$8.
func masterListQuery() string {
	return masterListWith() + masterListSelect
}

// materializeMasterListQuery inserts the report into t_master_data for the
// master config bound as $9.
func materializeMasterListQuery() string {
	return fmt.Sprintf("%s\nINSERT INTO cm_data.t_master_data (master_config_id, %s)\nSELECT $9::bigint, r.* FROM (%s) r",
		masterListWith(), strings.Join(masterDataColumns, ", "), masterListSelect)
}
