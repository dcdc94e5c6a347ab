package repository

import (
	"context"
	"fmt"

	"cm-admin/internal/db"
	"cm-admin/internal/domain"
)

var _ domain.ReportRepository = (*ReportRepo)(nil)

// ReportRepo runs the read-only reports. The SQL is fixed; only version ids
// and validated TCP/profile numbers are bound.
type ReportRepo struct {
	db db.DBTX
}

// NewReportRepo creates a new ReportRepo.
func NewReportRepo(pool db.DBTX) *ReportRepo {
	return &ReportRepo{db: pool}
}

// NB-IoT and CAT-M take the sparkle roaming, tele2 coverage and bics bands
// versions as $1, $2, $3.
var technologyArgs = []int{5, 1, 7}

const nbIotSQL = `
WITH operator_info AS (
    SELECT DISTINCT plmno_code, operator_name
    FROM cm_data.t_operator_info WHERE coalesce(plmno_code, '') <> ''),
sparkle AS (
    SELECT DISTINCT plmno_code, lower(nbiot_outbound) AS nbiot_outbound
    FROM cm_data.t_sparkle_roaming_updated WHERE version_id = $1),
tele2 AS (
    SELECT DISTINCT tadig_code, nbiot_out
    FROM cm_data.t_tele2_coverage WHERE version_id = $2),
bics AS (
    SELECT barring_reference_bics, max(fra09_nb_iot_launch) AS fra09_nb_iot_launch
    FROM cm_data.t_bics_coverage_bands_updated
    WHERE version_id = $3
    GROUP BY barring_reference_bics)
SELECT
    t1.plmno_code,
    CASE WHEN lower(t2.nbiot_outbound) ~* 'x' THEN 'TRUE' ELSE 'FALSE' END AS tim,
    CASE WHEN t3.nbiot_out IS NULL THEN 'FALSE' ELSE 'TRUE' END AS "TELE2",
    CASE WHEN t4.fra09_nb_iot_launch IS NULL THEN 'FALSE' ELSE 'TRUE' END AS "BICS",
    t1.operator_name
FROM operator_info t1
LEFT JOIN sparkle t2 ON t1.plmno_code = t2.plmno_code
LEFT JOIN tele2 t3 ON t1.plmno_code = t3.tadig_code
LEFT JOIN bics t4 ON t1.plmno_code = t4.barring_reference_bics
ORDER BY t1.plmno_code`

const catMSQL = `
WITH operator_info AS (
    SELECT DISTINCT plmno_code, operator_name, country
    FROM cm_data.t_operator_info WHERE coalesce(plmno_code, '') <> ''),
sparkle AS (
    SELECT DISTINCT plmno_code, lower(lte_m_outbound) AS lte_m_outbound
    FROM cm_data.t_sparkle_roaming_updated WHERE version_id = $1),
tele2 AS (
    SELECT DISTINCT tadig_code, lte_m_out
    FROM cm_data.t_tele2_coverage WHERE version_id = $2),
bics AS (
    SELECT barring_reference_bics, max(fra09_lte_m_launch) AS fra09_lte_m_launch
    FROM cm_data.t_bics_coverage_bands_updated
    WHERE version_id = $3
    GROUP BY barring_reference_bics),
donors AS (
    SELECT
        t1.plmno_code,
        t5."general",
        CASE WHEN lower(t2.lte_m_outbound) ~* 'x' THEN 'TRUE' ELSE 'FALSE' END AS "TIM",
        CASE WHEN t3.lte_m_out IS NULL THEN 'FALSE' ELSE 'TRUE' END AS "TELE2",
        CASE WHEN t4.fra09_lte_m_launch IS NULL THEN 'FALSE' ELSE 'TRUE' END AS "BICS",
        t1.country,
        t1.operator_name
    FROM operator_info t1
    LEFT JOIN sparkle t2 ON t1.plmno_code = t2.plmno_code
    LEFT JOIN tele2 t3 ON t1.plmno_code = t3.tadig_code
    LEFT JOIN bics t4 ON t1.plmno_code = t4.barring_reference_bics
    LEFT JOIN cm_temp.t_cat_m_general t5 ON t1.plmno_code = t5.plmno)
SELECT
    plmno_code, "general", "TIM", "TELE2", "BICS", country, operator_name,
    CASE WHEN "general" ~* 'true' AND "TIM" ~* 'false' THEN 'TRUE*' ELSE "TIM" END AS "TIM_general",
    CASE WHEN "general" ~* 'true' AND "TELE2" ~* 'false' THEN 'TRUE*' ELSE "TELE2" END AS "TELE2_general",
    CASE WHEN "general" ~* 'true' AND "BICS" ~* 'false' THEN 'TRUE*' ELSE "BICS" END AS "BICS_general"
FROM donors
ORDER BY plmno_code`

// NbIot reports NB-IoT support per operator across the three donors.
func (r *ReportRepo) NbIot(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	return r.query(ctx, "nb-iot report", nbIotSQL, v.Args(technologyArgs...)...)
}

// CatM reports LTE-M support per operator, with the general override.
func (r *ReportRepo) CatM(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	return r.query(ctx, "cat-m report", catMSQL, v.Args(technologyArgs...)...)
}

// MasterList assembles the master list from the database functions.
func (r *ReportRepo) MasterList(ctx context.Context, v domain.SourceVersions) (*domain.ResultSet, error) {
	return r.query(ctx, "master list", masterListQuery(), v.Args(masterListArgs...)...)
}

// Bap lists the next-carrier BAP entries of one TCP.
func (r *ReportRepo) Bap(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if !domain.ValidTCP(tcp) {
		return nil, domain.ErrValidation("Invalid TCP number")
	}
	sql := fmt.Sprintf(`
		SELECT id, country AS country_name, mcc, active AS active_imsi_donor, imsi_donor AS imsi_donor_name
		FROM cm_data.t_telit_next_carrier_list_bap_tcp%d
		ORDER BY country_name`, tcp)
	return r.query(ctx, "bap report", sql)
}

// PriceZoneList returns the global price zone list of one TCP.
func (r *ReportRepo) PriceZoneList(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if !domain.ValidTCP(tcp) {
		return nil, domain.ErrValidation("Invalid TCP number")
	}
	sql := fmt.Sprintf(`
		SELECT plmno_code, mcc_mnc, region, country, operator_name, price_zone,
		       "2g", "3g", "4g", cat_m, nb_iot, "comments", imsi_donor
		FROM cm_data.v_price_zone_list_tcp%d_global
		ORDER BY plmno_code`, tcp)
	return r.query(ctx, "price zone list", sql)
}

const eprofileCommentPRR = `CASE WHEN t10.prr = 'TRUE' AND (t10.country ~* 'china' OR t10.country ~* 'australia')
        THEN 'eUICC SIM is required for Permanent Roaming' ELSE '' END`

const eprofileJoins = `
FROM cm_data.v_master_list_coverage t1
JOIN cm_data.v_master_list_technologies t2 ON t1.id = t2.id
JOIN cm_data.v_master_list_price_zones t3 ON t1.id = t3.id
JOIN cm_data.v_master_list_prr_and_blocked_countries t10 ON t1.id = t10.id
JOIN cm_data.v_master_list_comments t11 ON t1.id = t11.id
JOIN cm_data.v_cat_m t12 ON t1.id = t12.id
JOIN cm_data.v_nb_iot t13 ON t1.id = t13.id`

// eprofileSQL holds the price-zone-per-eprofile queries. Profiles 1-3 are
// computed from the master-list views; 4 and 5 are maintained tables.
var eprofileSQL = map[int]string{
	1: `SELECT DISTINCT
    t1.plmno_code, t1.mcc_mnc, t1.region, t1.country, t1.operator_name, t3.eprofile_1_bics,
    t2.bics_2g, t2.bics_3g, t2.bics_4g,
    t12."BICS" AS cat_m, t13."BICS" AS nb_iot,
    ` + eprofileCommentPRR + ` AS comments` + eprofileJoins + `
WHERE t3.eprofile_1_bics < 8`,
	2: `SELECT DISTINCT
    t1.plmno_code, t1.mcc_mnc, t1.region, t1.country, t1.operator_name, t3.eprofile_1_bics,
    t2.tele2_2g, t2.tele2_3g, t2.tele2_4g,
    t12."TELE2" AS cat_m, t13."TELE2" AS nb_iot,
    ` + eprofileCommentPRR + ` || ' ' ||
    CASE WHEN t14.access_fee_per_imsi_eur_month::numeric < 0.2 THEN 'Access Fees Group A'
         WHEN t14.access_fee_per_imsi_eur_month::numeric >= 0.2 THEN 'Access Fees Group B'
         ELSE '' END AS comments` + eprofileJoins + `
LEFT JOIN cm_temp.t_tele2_updated_temp t14 ON t1.plmno_code = t14.tadig
WHERE t3.eprofile_2_tele2 < 8`,
	3: `SELECT DISTINCT
    t1.plmno_code, t1.mcc_mnc, t1.region, t1.country, t1.operator_name, t3.eprofile_1_bics,
    t2.sparkle_2g, t2.sparkle_3g, t2.sparkle_4g,
    t12."TIM" AS cat_m, t13.tim AS nb_iot,
    ` + eprofileCommentPRR + ` AS comments` + eprofileJoins + `
WHERE t3.eprofile_3_tim < 8`,
	4: `SELECT plmno, mcc_mnc, region, country, "operator", pz, "2g", "3g", "4g", cat_m, nb_iot, "comments"
FROM cm_data.t_eprofile_4 ORDER BY id`,
	5: `SELECT plmno, mcc_mnc, region, country, "operator", pz, "2g", "3g", "4g", cat_m, nb_iot, "comments"
FROM cm_data.t_eprofile_5 ORDER BY id`,
}

// Eprofile returns the price zone list of one eprofile (1..5).
func (r *ReportRepo) Eprofile(ctx context.Context, profile int) (*domain.ResultSet, error) {
	sql, ok := eprofileSQL[profile]
	if !ok {
		return nil, domain.ErrValidation("Invalid profile number")
	}
	return r.query(ctx, "eprofile report", sql)
}

// TCPList returns the configured TCPs.
func (r *ReportRepo) TCPList(ctx context.Context) (*domain.ResultSet, error) {
	return r.query(ctx, "tcp list", "SELECT id, tcp_name FROM cm_data.t_next_tcps ORDER BY id")
}

// PzCutOffPoints returns the price zone cut-off points of one TCP.
func (r *ReportRepo) PzCutOffPoints(ctx context.Context, tcp int) (*domain.ResultSet, error) {
	if !domain.ValidTCP(tcp) {
		return nil, domain.ErrValidation("Invalid TCP number")
	}
	return r.query(ctx, "pz cut-off points", `
		SELECT price_zone, cut_off_point FROM cm_data.t_pz_cut_off_points
		WHERE tcp_id = $1 ORDER BY id`, tcp)
}

const screenConfigSQL = `
WITH level2 AS (
    SELECT sub_screen_id,
           json_agg(json_build_object(
               'subScreenId', id,
               'subScreenName', sub_screen_level_2_name,
               'subScreenConf', jsonb_strip_nulls(jsonb_build_object(
                   'allowAdd', add_data,
                   'allowEdit', edit_data,
                   'allowDelete', delete_data,
                   'allowUpload', upload_data,
                   'skipRows', skip_rows))) ORDER BY id) AS sub_screens_level_2
    FROM cm_conf.t_cm_system_sub_screens_level_2
    GROUP BY sub_screen_id),
sub_screens AS (
    SELECT t1.screen_id, t1.id,
           jsonb_strip_nulls(jsonb_build_object(
               'subScreenId', t1.id,
               'subScreenName', t1.sub_screen_name,
               'subScreenstitle', t1.sub_screen_name,
               'subScreenConf', json_build_object(
                   'allowAdd', t1.add_data,
                   'allowEdit', t1.edit_data,
                   'allowDelete', t1.delete_data,
                   'allowUpload', t1.upload_data),
               'subScreensLevel2', t2.sub_screens_level_2)) AS sub_screen
    FROM cm_conf.t_cm_system_sub_screens t1
    LEFT JOIN level2 t2 ON t1.id = t2.sub_screen_id),
grouped AS (
    SELECT screen_id, json_agg(sub_screen ORDER BY id) AS sub_screens
    FROM sub_screens
    GROUP BY screen_id)
SELECT json_agg(json_build_object(
           'screenId', t1.id,
           'screenName', t1.screen_name,
           'screenTitle', t1.title,
           'subScreens', t2.sub_screens) ORDER BY t1.id) AS all_screens_config
FROM cm_conf.t_cm_system_screens t1
JOIN grouped t2 ON t1.id = t2.screen_id`

// ScreenConfig returns the UI screen tree as one JSON row.
func (r *ReportRepo) ScreenConfig(ctx context.Context) (*domain.ResultSet, error) {
	return r.query(ctx, "screen config", screenConfigSQL)
}

func (r *ReportRepo) query(ctx context.Context, name, sql string, args ...any) (*domain.ResultSet, error) {
	res, err := db.QueryResult(ctx, db.Conn(ctx, r.db), sql, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return res, nil
}
