package opinions

import (
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/workflow"

	opinionactivities "github.com/Apurer/opinions-api/internal/platform/temporal/activities/opinions"
)

// Registrar is satisfied by worker.Worker and the SDK test environment.
type Registrar interface {
	RegisterWorkflowWithOptions(w interface{}, options workflow.RegisterOptions)
	RegisterActivityWithOptions(a interface{}, options activity.RegisterOptions)
}

// Register binds the finalize workflow and its activities under their public names.
func Register(r Registrar, acts *opinionactivities.Activities) {
	r.RegisterWorkflowWithOptions(OpinionFinalizationWorkflow, workflow.RegisterOptions{Name: FinalizationWorkflowName})
	r.RegisterActivityWithOptions(acts.CommitInternalFinalization, activity.RegisterOptions{Name: opinionactivities.CommitInternalActivityName})
	r.RegisterActivityWithOptions(acts.CommitExternalFinalization, activity.RegisterOptions{Name: opinionactivities.CommitExternalActivityName})
	r.RegisterActivityWithOptions(acts.NotifyCaseFinalized, activity.RegisterOptions{Name: opinionactivities.NotifyCaseFinalizedActivityName})
	r.RegisterActivityWithOptions(acts.CompensateFinalization, activity.RegisterOptions{Name: opinionactivities.CompensateActivityName})
}
