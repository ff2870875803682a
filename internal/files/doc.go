// Package files manages the on-disk staging used while a run exports its
// workbooks.
//
// Manager creates one StagingArea per run under a configurable root. A
// staging area is a uniquely named temporary directory that is removed, with
// everything in it, when the run closes it:
//
//	stage, err := manager.NewStagingArea("pricecomp")
//	if err != nil {
//	    return err
//	}
//	defer stage.Close()
//
// Manager.WriteFile writes a finished artifact, such as an archive produced
// by the batch CLI, to its destination.
package files
