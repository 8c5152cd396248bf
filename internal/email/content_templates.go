package email

// purchaseConfirmationContentTemplate is the content section for purchase emails
const purchaseConfirmationContentTemplate = `
<div style="text-align: center; margin-bottom: 30px;">
    <h1 style="color: #6C4AB6; margin: 0; font-size: 28px;">Thank you for your purchase!</h1>
    <p style="font-size: 18px; color: #666; margin: 10px 0;">Your dice mosaic <strong>{{.ProjectName}}</strong> is ready.</p>
</div>

<div style="background-color: #f9f9f9; padding: 20px; border-radius: 8px; border-left: 4px solid #6C4AB6; margin-bottom: 25px; text-align: center;">
    <p style="margin: 5px 0; color: #555;">Your redemption code</p>
    <p style="margin: 10px 0; font-size: 32px; letter-spacing: 6px; font-weight: 700; font-family: monospace;">{{.Code}}</p>
    <p style="margin: 5px 0; font-size: 13px; color: #777;">Keep this code. With your email address it lets you download your files again at any time.</p>
</div>

<div style="text-align: center; margin: 30px 0;">
    {{if .PDFURL}}<a href="{{.PDFURL}}" style="display: inline-block; padding: 12px 30px; background-color: #6C4AB6; color: white; text-decoration: none; border-radius: 5px; font-weight: 600; margin: 5px;">Download Dice Map PDF</a>{{end}}
    {{if and .AssetURL (ne .AssetURL .PDFURL)}}<a href="{{.AssetURL}}" style="display: inline-block; padding: 12px 30px; background-color: #6C4AB6; color: white; text-decoration: none; border-radius: 5px; font-weight: 600; margin: 5px;">Download Image</a>{{end}}
</div>

<div style="text-align: center; margin-top: 30px; padding-top: 20px; border-top: 1px solid #ddd; color: #777; font-size: 14px;">
    <p>Lost your files? Visit <a href="{{.RedeemURL}}" style="color: #6C4AB6; text-decoration: none;">{{.RedeemURL}}</a> and enter your email and code.</p>
    {{if .QRCode}}<img src="{{.QRCode}}" alt="Redeem QR code" width="128" height="128" style="margin-top: 10px;" />{{end}}
</div>
`
