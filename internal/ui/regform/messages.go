package regform

import (
	"github.com/zjrosen/regform/internal/domain"
)

type countriesLoadedMsg struct {
	countries []domain.Country
	err       error
}

type submitDoneMsg struct {
	reg domain.Registration
	err error
}

type checkDoneMsg struct {
	availability domain.Availability
	err          error
}
