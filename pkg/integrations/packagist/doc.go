// Package packagist reads composer repository indexes.
//
// # Overview
//
// A composer repository publishes an index document listing the versions of
// every package it serves:
//
//	{"packages": {"acme/dep": {"1.2.0": {...}, "1.10.0": {...}}}}
//
// [Client.LatestVersion] fetches that document once and returns the latest
// version of one package, used to pick the version a linked dependency is
// installed as.
//
// # Usage
//
//	client, err := packagist.NewClient("https://repo.example.com/packages.json",
//	    packagist.WithCredentials(integrations.Credentials{Token: token}))
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	v, err := client.LatestVersion(ctx, "acme/dep")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if v == nil {
//	    fmt.Println("acme/dep is not published")
//	}
//
// # Version Selection
//
// Version keys are sorted in natural order, comparing digit runs by value,
// and the last key is parsed as the latest version. A package missing from
// the index yields a nil version and no error.
package packagist
