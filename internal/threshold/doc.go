// Package threshold classifies VM resource metrics against configured
// warning and critical boundaries. Offline VMs are reported as critical
// without metric evaluation; VMs with no breaches are recorded as healthy.
package threshold
