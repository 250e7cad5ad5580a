// Package workbook publishes grading reports as an xlsx workbook and reads
// the previous workbook back as a restaurant snapshot.
//
// The first sheet holds one row per restaurant and the second one row per
// cited violation, both with a header row of snake_case column names.
package workbook

import "github.com/tealeg/xlsx/v2"

const (
	restaurantSheet = "restaurants"
	violationSheet  = "violations"
)

var restaurantColumns = []string{
	"permit_number",
	"restaurant_name",
	"borough",
	"building",
	"street",
	"zipcode",
	"latitude",
	"longitude",
	"phone",
	"cuisine_description",
	"grade",
	"address",
	"img_src",
	"formatted_address",
	"geo_source",
}

var violationColumns = []string{
	"permit_number",
	"inspection_date",
	"inspection_type",
	"action",
	"violation_code",
	"violation_description",
	"critical_flag",
	"score",
	"grade",
	"grade_date",
}

func addHeader(sheet *xlsx.Sheet, columns []string) {
	row := sheet.AddRow()
	for _, c := range columns {
		row.AddCell().SetString(c)
	}
}
