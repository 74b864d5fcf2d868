package email

import "html/template"

var templates = template.Must(template.New("email").Funcs(template.FuncMap{
	"deref": func(p *int) any {
		if p == nil {
			return ""
		}
		return *p
	},
}).Parse(`
{{define "consultation_started"}}
<div style="font-family:Arial,sans-serif;line-height:1.6">
  <p>Hello {{.PatientName}},</p>
  <p>Your video consultation with <strong>Dr. {{.DoctorName}}</strong> has started.</p>
  <p>
    <a href="{{.MeetingURL}}" style="display:inline-block;padding:10px 16px;background:#2563eb;color:#ffffff;border-radius:6px;text-decoration:none">
      Join Video Consultation
    </a>
  </p>
  <p>If the button does not work, copy and paste this link:</p>
  <p>{{.MeetingURL}}</p>
  <p>Regards,<br/>Connect A Doctor</p>
</div>
{{end}}

{{define "missed_patient"}}
<p>Dear {{.RecipientName}},</p>
<p>You missed your scheduled video consultation with Dr. {{.CounterpartName}}.</p>
<p>Scheduled time: {{.When}}</p>
<p>Please log in to <a href="{{.RescheduleURL}}">reschedule</a>.</p>
{{end}}

{{define "missed_doctor"}}
<p>Dear Dr. {{.RecipientName}},</p>
<p>You missed your scheduled video consultation with {{.CounterpartName}}.</p>
<p>Scheduled time: {{.When}}</p>
<p>Please log in to follow up or <a href="{{.RescheduleURL}}">reschedule</a>.</p>
{{end}}

{{define "discharge"}}
<div style="font-family:Arial,sans-serif;line-height:1.6">
  <p>Dear {{.PatientName}},</p>
  <p>You have been discharged from the hospital. Please find your discharge summary below.</p>
  {{with .Summary.Vitals}}
  <h3>Vital Signs</h3>
  <table border="1" cellpadding="5" style="border-collapse:collapse">
    <thead>
      <tr>
        <th>Temp (&deg;C)</th><th>Systolic</th><th>Diastolic</th>
        <th>Heart Rate</th><th>Respiratory Rate</th>
        <th>O2 Sat</th><th>Weight</th><th>Height</th>
      </tr>
    </thead>
    <tbody>
      {{range .}}
      <tr>
        <td>{{.BodyTemperature}}</td>
        <td>{{.Systolic}}</td>
        <td>{{.Diastolic}}</td>
        <td>{{.HeartRate}}</td>
        <td>{{deref .RespiratoryRate}}</td>
        <td>{{deref .OxygenSaturation}}</td>
        <td>{{.Weight}}</td>
        <td>{{.Height}}</td>
      </tr>
      {{end}}
    </tbody>
  </table>
  {{end}}
  {{with .Summary.Diagnoses}}
  <h3>Diagnoses</h3>
  <ul>
    {{range .}}<li>{{.Diagnosis}}{{with .Notes}} - {{.}}{{end}}</li>{{end}}
  </ul>
  {{end}}
  {{with .Summary.Prescriptions}}
  <h3>Medications</h3>
  <ul>
    {{range .}}
    <li>
      <strong>Diagnosis: {{.Diagnosis}}</strong>
      <ul>
        {{range .Medications}}<li>{{.Name}} - {{.Dosage}} ({{.Frequency}}){{with .Administrations}} - Administered: {{len .}} times{{end}}</li>{{end}}
      </ul>
    </li>
    {{end}}
  </ul>
  {{end}}
  {{with .Notes}}<h3>Discharge Notes</h3><p>{{.}}</p>{{end}}
  <p>Regards,<br/>Connect A Doctor</p>
</div>
{{end}}
`))
