// Package cornfit is a batch pipeline over USDA NASS QuickStats corn survey
// exports.  It reads the delimited file, splits the composite Data Item
// description into typed columns, derives yield, aggregates production and
// harvested acres to hand-configured regions, fits additive and pairwise
// interaction least squares models, runs numeric residual diagnostics, and
// refits under GLS with an AR(1) error process per (region, irrigation)
// stratum.  One file in, one result out: Run is the whole pipeline, Check is
// its data half, and RunResult carries everything the report renders.
package cornfit
