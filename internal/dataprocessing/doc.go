// Package dataprocessing turns the discharge outlet register into the
// figures of the analysis report.
//
// # Architecture
//
// The package is organized into three components, run in this order:
//
// 1. Loader: reads the register workbook (or a CSV export) into a Dataset
// 2. Analyzer: counts missing values and flags outliers per column
// 3. Summarizer: groups outlets by categorical columns and totals volumes
//
// # Usage
//
//	ds, err := dataprocessing.NewLoader(logger).Load(ctx, "outlets.xlsx")
//	if err != nil {
//	    return err
//	}
//	quality := dataprocessing.NewAnalyzer(dataprocessing.DefaultAnalyzerOptions(), logger).Analyze(ctx, ds)
//	byProvince, err := dataprocessing.NewSummarizer(logger).GroupBy(ctx, ds,
//	    []string{domain.ColProvince},
//	    []string{domain.ColWastewaterVolume, domain.ColCoolingWaterVolume})
//
// # Missing values
//
// A text cell is missing when it is empty. A number cell is missing when it is
// empty or does not parse as a number. Missing numbers are left out of sums
// and statistics; missing grouping values form their own group so that group
// counts always add up to the number of records.
//
// # Outliers
//
// A numeric value is an outlier when it lies outside the Tukey fences
// Q1-k*IQR and Q3+k*IQR (k defaults to 1.5, needs at least four values) or
// outside the plausible range configured for the column.
package dataprocessing
